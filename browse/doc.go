// Package browse serves published inference results over HTTP.
//
// The API mirrors the object store layout written by the inference
// package: concepts listed in concepts.yml, the classifiers run for each
// concept, and the labelled passages each classifier produced. Reads are
// cached for a configurable TTL since published artifacts never change
// in place.
//
// Routes:
//
//	GET /healthz
//	GET /metrics
//	GET /api/concepts
//	GET /api/concepts/:concept_id/classifiers
//	GET /api/concepts/:concept_id/classifiers/:classifier_id
//	GET /api/concepts/:concept_id/classifiers/:classifier_id/stats
//	GET /api/predictions/:concept_id/:classifier_id
//	GET /api/predictions/:concept_id/:classifier_id/download
//
// Every JSON response uses the envelope {"success": true, "data": ...} or
// {"success": false, "error": "..."}.
package browse
