// Package output renders staging documents for people and machines.
//
// Four formats are supported: json, yaml, markdown and human. JSON is
// produced by DeterministicEncodeIndented so that identical plans encode to
// identical bytes:
//
//  1. Object keys are sorted alphabetically
//  2. Floats are rounded to at most 6 decimal places
//  3. Nil fields and omitempty zero values are dropped
//
// The only time-varying field of a document is analysis.timestamp, which
// CompareSnapshots ignores.
//
//	doc := staging.NewDocument(plan, time.Now())
//	if err := output.Render(os.Stdout, doc, output.FormatJSON); err != nil {
//	    return err
//	}
package output
