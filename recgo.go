package recgo

import (
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/RoaringBitmap/roaring/v2/roaring64"

	"github.com/hupe1980/recgo/blobstore"
	"github.com/hupe1980/recgo/codec"
	"github.com/hupe1980/recgo/core"
	"github.com/hupe1980/recgo/dataset"
	"github.com/hupe1980/recgo/manifest"
	"github.com/hupe1980/recgo/pipeline"
	"github.com/hupe1980/recgo/recommend"
	"github.com/hupe1980/recgo/vector"
)

// Dataset names of the checkpointed phase outputs.
const (
	DatasetItemIndex       = "itemindex.rgds"
	DatasetUserVectors     = "uservectors.rgds"
	DatasetCooccurrence    = "cooccurrence.rgds"
	DatasetPartialProducts = "partialproducts.rgds"
	DatasetRecommendations = "recommendations.rgds"
)

// Pipeline computes top-N item recommendations per user from a preference
// dataset, as a sequence of checkpointed phases over a blob store. Each phase
// persists a complete dataset; a re-run with an unchanged configuration
// resumes after the last completed phase.
type Pipeline struct {
	store    blobstore.BlobStore
	opts     options
	logger   *Logger
	ctrl     *pipeline.Controller
	manifest *manifest.Store
}

// New creates a Pipeline over the given blob store. The store holds the
// input blob, every intermediate dataset, and the final output.
func New(store blobstore.BlobStore, optFns ...Option) (*Pipeline, error) {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	if store == nil {
		return nil, errors.New("recgo: nil blob store")
	}
	if opts.numRecommendations <= 0 {
		return nil, fmt.Errorf("recgo: numRecommendations must be positive, got %d", opts.numRecommendations)
	}
	if opts.maxPrefsPerUser <= 0 {
		return nil, fmt.Errorf("recgo: maxPrefsPerUser must be positive, got %d", opts.maxPrefsPerUser)
	}
	if opts.startPhase > opts.endPhase {
		return nil, ErrInvalidPhaseRange
	}
	if opts.logger == nil {
		opts.logger = NoopLogger()
	}

	return &Pipeline{
		store:  store,
		opts:   opts,
		logger: opts.logger,
		ctrl: pipeline.NewController(pipeline.ControllerConfig{
			MaxWorkers:         opts.maxConcurrency,
			IOLimitBytesPerSec: opts.ioLimitBytesPerSec,
		}),
		manifest: manifest.NewStore(store, opts.codec),
	}, nil
}

// Run executes the configured phase range against the preference blob named
// inputName. Completed phases recorded in the manifest under a matching
// configuration fingerprint are skipped; on any phase failure the run aborts
// without marking that phase complete.
func (p *Pipeline) Run(ctx context.Context, inputName string) error {
	fp, err := p.fingerprint(ctx, inputName)
	if err != nil {
		return err
	}

	m, err := p.manifest.Load(ctx)
	if err != nil {
		return err
	}
	if m.Fingerprint != fp || p.opts.forceRerun {
		m.Reset(fp)
	}

	// Starting past a phase requires its recorded output.
	for _, phase := range pipeline.Phases() {
		if phase >= p.opts.startPhase {
			break
		}
		if _, ok := m.Completed(phase.String()); !ok {
			return fmt.Errorf("%w: %s", ErrPhaseNotComplete, phase)
		}
	}

	for _, phase := range pipeline.Phases() {
		if phase < p.opts.startPhase {
			continue
		}
		if phase > p.opts.endPhase {
			break
		}
		if info, ok := m.Completed(phase.String()); ok {
			p.logger.LogPhaseSkip(ctx, phase, info.Records)
			continue
		}

		name, records, err := p.runPhase(ctx, phase, inputName)
		if err != nil {
			perr := &PhaseError{Phase: phase, Err: err}
			p.logger.LogPhaseFailed(ctx, phase, err)
			return perr
		}

		m.MarkCompleted(manifest.PhaseInfo{
			Name:    phase.String(),
			Dataset: name,
			Records: records,
		})
		if err := p.manifest.Save(ctx, m); err != nil {
			return &PhaseError{Phase: phase, Err: err}
		}
		p.logger.LogPhaseComplete(ctx, phase, records)
	}

	return nil
}

func (p *Pipeline) runPhase(ctx context.Context, phase pipeline.Phase, inputName string) (string, uint64, error) {
	switch phase {
	case pipeline.PhaseItemIndex:
		return p.runItemIndex(ctx, inputName)
	case pipeline.PhaseUserVectors:
		return p.runUserVectors(ctx, inputName)
	case pipeline.PhaseCooccurrence:
		return p.runCooccurrence(ctx)
	case pipeline.PhasePartialProducts:
		return p.runPartialProducts(ctx)
	case pipeline.PhaseRecommendations:
		return p.runRecommendations(ctx)
	default:
		return "", 0, fmt.Errorf("recgo: no runner for phase %s", phase)
	}
}

// runItemIndex streams the raw preferences once, deduplicates the observed
// item IDs and persists the dense index table.
func (p *Pipeline) runItemIndex(ctx context.Context, inputName string) (string, uint64, error) {
	seen := roaring64.New()
	err := p.forEachPreference(ctx, inputName, func(pref recommend.Preference) error {
		seen.Add(uint64(pref.ItemID))
		return nil
	})
	if err != nil {
		return "", 0, err
	}

	table, err := recommend.BuildItemIndexTable(seen)
	if err != nil {
		return "", 0, err
	}

	n, err := p.writeDataset(ctx, DatasetItemIndex, table.Records())
	if err != nil {
		return "", 0, err
	}
	return DatasetItemIndex, n, nil
}

// runUserVectors groups the raw preferences by user and materializes one
// sparse vector per user over the item index space.
func (p *Pipeline) runUserVectors(ctx context.Context, inputName string) (string, uint64, error) {
	table, err := p.loadItemIndex(ctx)
	if err != nil {
		return "", 0, err
	}

	var prefs []recommend.Preference
	err = p.forEachPreference(ctx, inputName, func(pref recommend.Preference) error {
		prefs = append(prefs, pref)
		return nil
	})
	if err != nil {
		return "", 0, err
	}

	groups := recommend.GroupByUser(prefs)
	results, err := pipeline.MapGroups(ctx, p.ctrl, groups,
		func(user core.UserID, userPrefs []recommend.Preference) (*vector.Vector, error) {
			return recommend.BuildUserVector(userPrefs, table)
		})
	if err != nil {
		return "", 0, err
	}

	records := make([]dataset.Record, 0, len(results))
	for _, r := range results {
		records = append(records, dataset.Record{
			Key:   recommend.UserKey(r.Key),
			Value: codec.EncodeVector(r.Result),
		})
	}
	pipeline.SortRecords(records)

	n, err := p.writeDataset(ctx, DatasetUserVectors, records)
	if err != nil {
		return "", 0, err
	}
	return DatasetUserVectors, n, nil
}

// runCooccurrence expands every user vector into symmetric pair evidence and
// sums it into one sparse column per item index. Partial column sets are
// built per batch in parallel and merged in batch order; column addition is
// associative and commutative, so the merged result does not depend on how
// vectors were batched.
func (p *Pipeline) runCooccurrence(ctx context.Context) (string, uint64, error) {
	var vectors []*vector.Vector
	err := dataset.ForEach(ctx, p.store, DatasetUserVectors, func(_, value []byte) error {
		v, err := codec.DecodeVector(value)
		if err != nil {
			return err
		}
		vectors = append(vectors, v)
		return nil
	})
	if err != nil {
		return "", 0, err
	}

	batches := make(map[int][]*vector.Vector)
	workers := p.ctrl.MaxWorkers()
	if workers < 1 {
		workers = 1
	}
	size := (len(vectors) + workers - 1) / workers
	for i := 0; i < len(vectors); i += size {
		end := i + size
		if end > len(vectors) {
			end = len(vectors)
		}
		batches[i/size] = vectors[i:end]
	}

	results, err := pipeline.MapGroups(ctx, p.ctrl, batches,
		func(_ int, batch []*vector.Vector) (map[core.ItemIndex]*vector.Vector, error) {
			return recommend.CooccurrenceColumns(batch), nil
		})
	if err != nil {
		return "", 0, err
	}

	columns := make(map[core.ItemIndex]*vector.Vector)
	for _, r := range results {
		recommend.MergeCooccurrenceColumns(columns, r.Result)
	}

	records := make([]dataset.Record, 0, len(columns))
	for i, col := range columns {
		records = append(records, dataset.Record{
			Key:   recommend.IndexKey(i),
			Value: codec.EncodeVector(col),
		})
	}
	pipeline.SortRecords(records)

	n, err := p.writeDataset(ctx, DatasetCooccurrence, records)
	if err != nil {
		return "", 0, err
	}
	return DatasetCooccurrence, n, nil
}

// runPartialProducts prunes each eligible user vector, re-keys the surviving
// slots by item index and joins them against the co-occurrence columns into
// the per-index VectorAndPrefs records.
func (p *Pipeline) runPartialProducts(ctx context.Context) (string, uint64, error) {
	filter, err := p.loadUserFilter(ctx)
	if err != nil {
		return "", 0, err
	}

	contributions := make(map[core.ItemIndex][]recommend.VectorOrPref)

	err = dataset.ForEach(ctx, p.store, DatasetUserVectors, func(key, value []byte) error {
		user, err := recommend.DecodeUserKey(key)
		if err != nil {
			return err
		}
		if !recommend.UserEligible(filter, user) {
			return nil
		}
		v, err := codec.DecodeVector(value)
		if err != nil {
			return err
		}
		v = recommend.PruneUserVector(v, p.opts.maxPrefsPerUser)
		recommend.SplitUserVector(user, v, func(i core.ItemIndex, vp recommend.VectorOrPref) {
			contributions[i] = append(contributions[i], vp)
		})
		return nil
	})
	if err != nil {
		return "", 0, err
	}

	err = dataset.ForEach(ctx, p.store, DatasetCooccurrence, func(key, value []byte) error {
		idx, err := recommend.DecodeIndexKey(key)
		if err != nil {
			return err
		}
		col, err := codec.DecodeVector(value)
		if err != nil {
			return err
		}
		contributions[idx] = append(contributions[idx], recommend.VectorOrPref{Column: col})
		return nil
	})
	if err != nil {
		return "", 0, err
	}

	results, err := pipeline.MapGroups(ctx, p.ctrl, contributions, recommend.JoinVectorAndPrefs)
	if err != nil {
		return "", 0, err
	}

	var records []dataset.Record
	for _, r := range results {
		if r.Result == nil {
			continue
		}
		records = append(records, dataset.Record{
			Key:   recommend.IndexKey(r.Key),
			Value: recommend.EncodeVectorAndPrefs(r.Result),
		})
	}
	pipeline.SortRecords(records)

	n, err := p.writeDataset(ctx, DatasetPartialProducts, records)
	if err != nil {
		return "", 0, err
	}
	return DatasetPartialProducts, n, nil
}

// runRecommendations fans the joined records out into per-user partial score
// vectors, sums them, removes each user's own rated items from candidacy and
// persists the ranked top-N lists.
func (p *Pipeline) runRecommendations(ctx context.Context) (string, uint64, error) {
	table, err := p.loadItemIndex(ctx)
	if err != nil {
		return "", 0, err
	}

	// The unpruned preference sets drive self-recommendation exclusion;
	// excluded slots still mark rated items.
	rated := make(map[core.UserID]*roaring.Bitmap)
	err = dataset.ForEach(ctx, p.store, DatasetUserVectors, func(key, value []byte) error {
		user, err := recommend.DecodeUserKey(key)
		if err != nil {
			return err
		}
		v, err := codec.DecodeVector(value)
		if err != nil {
			return err
		}
		rated[user] = v.Bitmap()
		return nil
	})
	if err != nil {
		return "", 0, err
	}

	partials := make(map[core.UserID][]*vector.Vector)
	err = dataset.ForEach(ctx, p.store, DatasetPartialProducts, func(_, value []byte) error {
		vp, err := recommend.DecodeVectorAndPrefs(value)
		if err != nil {
			return err
		}
		recommend.PartialProducts(vp, func(user core.UserID, partial *vector.Vector) {
			partials[user] = append(partials[user], partial)
		})
		return nil
	})
	if err != nil {
		return "", 0, err
	}

	results, err := pipeline.MapGroups(ctx, p.ctrl, partials,
		func(user core.UserID, userPartials []*vector.Vector) ([]recommend.RecommendedItem, error) {
			scores := recommend.SumPartialScores(userPartials)
			return recommend.TopNRecommendations(scores, rated[user], table, p.opts.numRecommendations)
		})
	if err != nil {
		return "", 0, err
	}

	var records []dataset.Record
	for _, r := range results {
		if len(r.Result) == 0 {
			continue
		}
		value, err := p.opts.codec.Marshal(recommend.Recommendations{
			UserID: r.Key,
			Items:  r.Result,
		})
		if err != nil {
			return "", 0, err
		}
		records = append(records, dataset.Record{
			Key:   recommend.UserKey(r.Key),
			Value: value,
		})
	}
	pipeline.SortRecords(records)

	n, err := p.writeDataset(ctx, DatasetRecommendations, records)
	if err != nil {
		return "", 0, err
	}
	return DatasetRecommendations, n, nil
}

// Results loads the final per-user recommendation lists, ordered by the
// dataset's key order.
func (p *Pipeline) Results(ctx context.Context) ([]recommend.Recommendations, error) {
	var out []recommend.Recommendations
	err := dataset.ForEach(ctx, p.store, DatasetRecommendations, func(_, value []byte) error {
		var rec recommend.Recommendations
		if err := p.opts.codec.Unmarshal(value, &rec); err != nil {
			return err
		}
		out = append(out, rec)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

// WriteText renders the final recommendations in the tab-separated
// userID\t[item:score,...] text form, one user per line.
func (p *Pipeline) WriteText(ctx context.Context, w io.Writer) error {
	results, err := p.Results(ctx)
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(w)
	for _, rec := range results {
		if _, err := bw.WriteString(rec.String()); err != nil {
			return err
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// forEachPreference streams the preferences of the named input blob.
func (p *Pipeline) forEachPreference(ctx context.Context, inputName string, fn func(recommend.Preference) error) error {
	blob, err := p.store.Open(ctx, inputName)
	if err != nil {
		return fmt.Errorf("recgo: open input %s: %w", inputName, err)
	}
	defer func() { _ = blob.Close() }()

	r := recommend.NewPreferenceReader(blobstore.NewReader(ctx, blob), p.opts.booleanData)
	for {
		pref, err := r.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if err := fn(pref); err != nil {
			return err
		}
	}
}

// loadItemIndex rebuilds the item index table from its dataset.
func (p *Pipeline) loadItemIndex(ctx context.Context) (*recommend.ItemIndexTable, error) {
	records, err := dataset.ReadAll(ctx, p.store, DatasetItemIndex)
	if err != nil {
		return nil, err
	}
	return recommend.ItemIndexFromRecords(records)
}

// loadUserFilter loads the optional users file. A nil bitmap admits all
// users.
func (p *Pipeline) loadUserFilter(ctx context.Context) (*roaring64.Bitmap, error) {
	if p.opts.usersFile == "" {
		return nil, nil
	}
	blob, err := p.store.Open(ctx, p.opts.usersFile)
	if err != nil {
		return nil, fmt.Errorf("recgo: open users file %s: %w", p.opts.usersFile, err)
	}
	defer func() { _ = blob.Close() }()
	return recommend.ReadUserFilter(blobstore.NewReader(ctx, blob))
}

// writeDataset persists records (already byte-sorted by key) under name,
// honoring the configured IO throughput limit. On failure the blob is
// deleted so a later run never sees a partial dataset under its final name.
func (p *Pipeline) writeDataset(ctx context.Context, name string, records []dataset.Record) (uint64, error) {
	w, err := dataset.NewWriter(ctx, p.store, name, p.opts.compression)
	if err != nil {
		return 0, err
	}

	for _, rec := range records {
		if err := p.ctrl.AcquireIO(ctx, len(rec.Key)+len(rec.Value)); err != nil {
			_ = w.Close()
			_ = p.store.Delete(ctx, name)
			return 0, err
		}
		if err := w.Append(rec.Key, rec.Value); err != nil {
			_ = w.Close()
			_ = p.store.Delete(ctx, name)
			return 0, err
		}
	}

	if err := w.Close(); err != nil {
		_ = p.store.Delete(ctx, name)
		return 0, err
	}
	return w.Records(), nil
}

// fingerprint hashes the run configuration together with the input blob
// identity and size. Any change forces a full recomputation; matching
// fingerprints make recorded phase completions trustworthy for resume.
func (p *Pipeline) fingerprint(ctx context.Context, inputName string) (string, error) {
	blob, err := p.store.Open(ctx, inputName)
	if err != nil {
		return "", fmt.Errorf("recgo: open input %s: %w", inputName, err)
	}
	size := blob.Size()
	_ = blob.Close()

	h := sha256.New()
	fmt.Fprintf(h, "input=%s,size=%d,", inputName, size)
	fmt.Fprintf(h, "n=%d,k=%d,boolean=%t,users=%s,compression=%s",
		p.opts.numRecommendations,
		p.opts.maxPrefsPerUser,
		p.opts.booleanData,
		p.opts.usersFile,
		p.opts.compression,
	)
	return hex.EncodeToString(h.Sum(nil)), nil
}
