// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package inference runs concept classifiers over a shared passage corpus.
//
// A Unit processes one concept end to end: it looks the concept up, embeds
// its description, selects the passages worth classifying, classifies them
// with an Executor and hands the results to a Publisher. Recoverable errors
// are retried and then turned into a failed core.ConceptResult, so one bad
// concept never stops the others.
//
// An Orchestrator fans units out over a fixed-width worker pool and waits
// for all of them. Every concept gets exactly one Outcome in the Report,
// including units that panicked.
//
// # Usage
//
//	unit, err := inference.NewUnit(lookup, embedder, factory, store,
//	    inference.WithSeed(42),
//	    inference.WithReporter(progress.NewLogReporter(nil)),
//	)
//	orch, err := inference.NewOrchestrator(unit, inference.WithConfig(cfg))
//	defer orch.Release()
//
//	report, err := orch.RunBatch(ctx, []string{"Q374", "Q1167"}, dataset)
//	report.LogSummary(slog.Default())
package inference
