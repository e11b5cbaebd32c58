// Package recgo computes top-N item recommendations per user with
// item-based collaborative filtering over a co-occurrence matrix.
//
// The computation runs as five checkpointed phases over a blob store: item
// indexing, user vector building, co-occurrence counting, the pruned
// partial-product join, and top-N aggregation. Every phase persists a
// complete dataset and is a deterministic function of its input, so a
// re-run with an unchanged configuration resumes after the last completed
// phase and reproduces identical output.
//
//	store, err := blobstore.NewLocalStore("/data/recgo")
//	if err != nil { ... }
//
//	p, err := recgo.New(store,
//		recgo.WithNumRecommendations(10),
//		recgo.WithMaxPrefsPerUser(10),
//	)
//	if err != nil { ... }
//
//	if err := p.Run(ctx, "preferences.csv"); err != nil { ... }
//	results, err := p.Results(ctx)
package recgo
