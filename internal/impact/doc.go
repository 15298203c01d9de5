// Package impact scores the risk of individual file changes.
//
// The analyzer combines a change's classification with path signals:
//   - Breaking signals: exported API removed with no matching addition, or a
//     breaking-change classification
//   - Critical signals: package manifests, lock files, Dockerfiles and compose
//     files, env files, migrations, and security-sensitive modules
//   - A weighted risk score over category, size, criticality and change type
//
// Basic usage:
//
//	analyzer := impact.NewAnalyzer(logger)
//	assessment := analyzer.Assess(change, analysis)
//	if assessment.Breaking || assessment.Critical {
//	    // escalate the boundary holding this file
//	}
//
// Assessments drive boundary priority. They never influence clustering.
package impact
