// Package dataprocessing reads plate-reader exports and plate designs and
// turns them into the tabular readings the analyses consume.
//
// # Inputs
//
// Plate reader files are BioTek Excel exports, either a single endpoint read
// (ParseReading) or a kinetic read (ParseTimeSeries). Plate designs are a
// workbook with one sheet per plate, named EXP_PLATE (ParsePlateDesign).
// ParseFolder joins a folder of exports with their design:
//
//	readings, err := dataprocessing.ParseFolder(ctx, "EXP1_20240101_MIC_0001", "design.xlsx", dataprocessing.KindMIC)
//	if err != nil {
//	    return err
//	}
//	err = dataprocessing.WriteReadingsFile("exp1.tsv", readings)
//
// A concentration ramp is laid out differently: one En_STEP subfolder per
// passage and a single design sheet with a column per treatment
// (ParseRampDesign, ParseRampFolder). The last passage ran at the design
// concentration and each earlier one at half of the next.
//
// # Output
//
// Readings are exchanged as tab-separated files with one row per well and
// time point (ReadReadings, WriteReadings). Ramp tables add the MIC multiple
// of each passage (WriteRampReadingsFile).
package dataprocessing
