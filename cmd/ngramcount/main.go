// Command ngramcount counts n-grams in a text corpus, spills them to
// sorted, front-coded block files, and merges those into one block file
// that a downstream Kneser-Ney estimator reads back.
//
// Usage:
//
//	ngramcount -input corpus.txt -output counts.blk -order 3 -ram 268435456
//
// Flags:
//
//	-input      Path to the input corpus, one sentence per line (default: stdin)
//	-output     Path for the final merged block file
//	-vocab      Path to write the word -> id vocabulary (default: <output>.vocab)
//	-order      N-gram order N (default: 3)
//	-ram        Approximate RAM budget per accumulator, in bytes (default: 256 MiB)
//	-comparator Block order: prefix or context (default: context)
//	-strategy   Sort strategy: indirect or radix (default: indirect)
//	-blockbytes Fixed on-disk block size (default: 64 MiB)
//	-workers    Parallelism for sort (default: GOMAXPROCS)
//	-stats      Print final block-file statistics after the merge
//	-verify     Recheck every spill's checksum before merging it
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	ngramblock "github.com/kneserney/ngramblock"
	nberrors "github.com/kneserney/ngramblock/errors"
	"github.com/kneserney/ngramblock/internal/diskhint"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "ngramcount: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	inputFlag := flag.String("input", "", "input corpus path (default: stdin)")
	outputFlag := flag.String("output", "counts.blk", "output block file path")
	vocabFlag := flag.String("vocab", "", "vocabulary output path (default: <output>.vocab)")
	orderFlag := flag.Int("order", 3, "n-gram order")
	ramFlag := flag.Int64("ram", 256<<20, "approximate RAM budget per accumulator, in bytes")
	comparatorFlag := flag.String("comparator", "context", "block order: prefix or context")
	strategyFlag := flag.String("strategy", "indirect", "sort strategy: indirect or radix")
	blockBytesFlag := flag.Int("blockbytes", ngramblock.DefaultBlockBytes, "fixed on-disk block size")
	workersFlag := flag.Int("workers", runtime.GOMAXPROCS(0), "parallelism for sort")
	statsFlag := flag.Bool("stats", false, "print final block-file statistics after the merge")
	verifyFlag := flag.Bool("verify", false, "recheck every spill's checksum before merging it")
	flag.Parse()

	order := *orderFlag
	cmp, err := parseComparator(*comparatorFlag, order)
	if err != nil {
		return err
	}
	strategy, err := parseStrategy(*strategyFlag)
	if err != nil {
		return err
	}

	in := os.Stdin
	if *inputFlag != "" {
		f, err := os.Open(*inputFlag)
		if err != nil {
			return err
		}
		defer func() { _ = f.Close() }()
		in = f
	}

	vocabPath := *vocabFlag
	if vocabPath == "" {
		vocabPath = *outputFlag + ".vocab"
	}

	tmpDir, err := os.MkdirTemp("", "ngramcount-")
	if err != nil {
		return err
	}
	defer func() { _ = os.RemoveAll(tmpDir) }()

	ctx := context.Background()

	vocab := newVocabulary()
	spills, totalTokens, err := ingest(ctx, in, vocab, order, *ramFlag, *blockBytesFlag, *workersFlag, cmp, strategy, tmpDir)
	if err != nil {
		return err
	}
	defer func() {
		for _, p := range spills {
			_ = os.Remove(p)
			_ = os.Remove(p + ".sum")
		}
	}()

	fmt.Printf("ingested corpus: %d distinct words, %d spill file(s)\n", vocab.size(), len(spills))

	if *verifyFlag {
		if err := verifySpills(spills); err != nil {
			return err
		}
		fmt.Println("verified all spill checksums")
	}

	if err := vocab.writeTo(vocabPath); err != nil {
		return err
	}

	mergeStart := time.Now()
	stats, err := mergeSpills(spills, *outputFlag, order, cmp, vocab.size(), totalTokens, *blockBytesFlag)
	if err != nil {
		return err
	}
	fmt.Printf("merged into %s in %s\n", *outputFlag, time.Since(mergeStart).Round(time.Millisecond))

	if *statsFlag {
		fmt.Printf("final stats: %d distinct n-grams, max word id %d, max payload %d\n",
			stats.Count, stats.MaxWordID, stats.MaxPayload)
	}

	return nil
}

func parseComparator(name string, order int) (ngramblock.Comparator, error) {
	switch name {
	case "prefix":
		return ngramblock.PrefixOrder{N: order}, nil
	case "context":
		return ngramblock.ContextOrder{N: order}, nil
	default:
		return nil, fmt.Errorf("unknown comparator %q (use prefix or context)", name)
	}
}

func parseStrategy(name string) (ngramblock.SortStrategy, error) {
	switch name {
	case "indirect":
		return ngramblock.StrategyIndirect, nil
	case "radix":
		return ngramblock.StrategyRadix, nil
	default:
		return 0, fmt.Errorf("unknown strategy %q (use indirect or radix)", name)
	}
}

// ingest tokenizes in, accumulates n-grams across one or more accumulators
// bounded by ramBudget, and spills each to its own block file in tmpDir. It
// returns the spill file paths and the total number of n-grams observed
// (a safe, if loose, upper bound on any single n-gram's final payload).
func ingest(ctx context.Context, in *os.File, vocab *vocabulary, order int, ramBudget int64, blockBytes, workers int, cmp ngramblock.Comparator, strategy ngramblock.SortStrategy, tmpDir string) ([]string, uint64, error) {
	entryBytes := int64(order*4 + 8)
	capacity := int(ramBudget / (entryBytes * 2))
	if capacity < 1024 {
		capacity = 1024
	}

	var spills []string
	var totalTokens uint64
	spillIndex := 0

	acc, err := ngramblock.NewAccumulator(order, capacity)
	if err != nil {
		return nil, 0, err
	}

	flush := func() error {
		if acc.Size() == 0 {
			return nil
		}
		path, err := flushAccumulator(ctx, acc, cmp, strategy, workers, blockBytes, tmpDir, spillIndex)
		if err != nil {
			return err
		}
		spills = append(spills, path)
		spillIndex++
		acc.Release()
		acc, err = ngramblock.NewAccumulator(order, capacity)
		return err
	}

	window := make([]ngramblock.WordID, 0, order)
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 1<<20)

	emit := func(ngram []ngramblock.WordID) error {
		hint := ngramblock.XXHint(ngram)
		for {
			id, existed, err := acc.FindOrInsert(ngram, hint)
			if err == nil {
				if existed {
					acc.IncrementPayloadAt(id, 1)
				}
				totalTokens++
				return nil
			}
			if errors.Is(err, nberrors.ErrProbeExhausted) {
				if flushErr := flush(); flushErr != nil {
					return flushErr
				}
				continue
			}
			return err
		}
	}

	for scanner.Scan() {
		line := scanner.Text()
		window = window[:0]
		window = append(window, vocab.id(startToken))
		for _, tok := range splitFields(line) {
			window = append(window, vocab.id(tok))
		}
		window = append(window, vocab.id(endToken))

		if len(window) < order {
			continue
		}
		ngram := make([]ngramblock.WordID, order)
		for i := 0; i+order <= len(window); i++ {
			copy(ngram, window[i:i+order])
			if err := emit(ngram); err != nil {
				return nil, 0, err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, err
	}

	if err := flush(); err != nil {
		return nil, 0, err
	}

	return spills, totalTokens, nil
}

func flushAccumulator(ctx context.Context, acc *ngramblock.Accumulator, cmp ngramblock.Comparator, strategy ngramblock.SortStrategy, workers, blockBytes int, tmpDir string, index int) (string, error) {
	if err := acc.Sort(ctx, cmp, ngramblock.WithStrategy(strategy), ngramblock.WithSortWorkers(workers)); err != nil {
		return "", err
	}
	acc.ReleaseHashIndex()

	path := filepath.Join(tmpDir, fmt.Sprintf("spill-%04d.blk", index))
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	expected := ngramblock.EstimateRunBytes(acc.Order(), acc.Stats(), int64(acc.Size()), blockBytes)
	_ = diskhint.Preallocate(f, expected)

	w, err := ngramblock.NewWriter(f, acc.Order(), ngramblock.WithBlockBytes(blockBytes))
	if err != nil {
		return "", err
	}
	if err := w.WriteRun(ngramblock.NewAccumulatorIterator(acc), cmp, acc.Stats()); err != nil {
		return "", err
	}
	// Drop any preallocated tail the run did not fill, so the file holds
	// exactly the bytes the checksum covers.
	if err := f.Truncate(int64(w.BlocksWritten()) * int64(blockBytes)); err != nil {
		return "", err
	}
	if err := writeChecksumSidecar(path, w.Checksum()); err != nil {
		return "", err
	}
	return path, nil
}

// writeChecksumSidecar persists a Writer's checksum next to its block
// file, so a later reader can call VerifyChecksum without having to
// recompute the run.
func writeChecksumSidecar(blockPath string, sum uint64) error {
	return os.WriteFile(blockPath+".sum", []byte(strconv.FormatUint(sum, 16)), 0o644)
}

// readChecksumSidecar reads back a checksum written by writeChecksumSidecar.
func readChecksumSidecar(blockPath string) (uint64, error) {
	data, err := os.ReadFile(blockPath + ".sum")
	if err != nil {
		return 0, err
	}
	return strconv.ParseUint(strings.TrimSpace(string(data)), 16, 64)
}

// mergeSpills opens every spill file, merges them by ngram under cmp,
// and writes the combined run to outputPath as a fresh block file.
func mergeSpills(spills []string, outputPath string, order int, cmp ngramblock.Comparator, vocabSize int, totalTokens uint64, blockBytes int) (ngramblock.Stats, error) {
	var maxWordID ngramblock.WordID
	if vocabSize > 0 {
		maxWordID = ngramblock.WordID(vocabSize - 1)
	}
	runStats := ngramblock.Stats{MaxWordID: maxWordID, MaxPayload: totalTokens}

	sources, spillClosers, err := openSpills(spills, order, cmp, blockBytes)
	if err != nil {
		return ngramblock.Stats{}, err
	}
	defer func() {
		for _, c := range spillClosers {
			_ = c.Close()
		}
	}()

	merged, err := ngramblock.NewMergeReader(cmp, order, sources)
	if err != nil {
		return ngramblock.Stats{}, err
	}

	out, err := os.Create(outputPath)
	if err != nil {
		return ngramblock.Stats{}, err
	}
	defer func() { _ = out.Close() }()

	// The merge only combines equal-key records across spills, so the sum
	// of spill sizes is used as the size hint. It is not a strict bound:
	// the merged run's widths come from the vocabulary size and the total
	// token count and can be wider than any spill's.
	var expected int64
	for _, spill := range spills {
		if fi, statErr := os.Stat(spill); statErr == nil {
			expected += fi.Size()
		}
	}
	_ = diskhint.Preallocate(out, expected)

	w, err := ngramblock.NewWriter(out, order, ngramblock.WithBlockBytes(blockBytes))
	if err != nil {
		return ngramblock.Stats{}, err
	}

	it := &mergeIterator{mr: merged}
	var count int
	var maxPayload uint64
	countingIt := &countingIterator{inner: it, count: &count, maxPayload: &maxPayload}
	if err := w.WriteRun(countingIt, cmp, runStats); err != nil {
		return ngramblock.Stats{}, err
	}
	if it.err != nil {
		return ngramblock.Stats{}, it.err
	}
	// Drop any preallocated tail the run did not fill, so the file holds
	// exactly the bytes the checksum covers.
	if err := out.Truncate(int64(w.BlocksWritten()) * int64(blockBytes)); err != nil {
		return ngramblock.Stats{}, err
	}
	if err := writeChecksumSidecar(outputPath, w.Checksum()); err != nil {
		return ngramblock.Stats{}, err
	}

	return ngramblock.Stats{Count: count, MaxWordID: maxWordID, MaxPayload: maxPayload}, nil
}

// verifySpills re-reads every spill file and checks it against the
// checksum its Writer reported at flush time, catching truncation or
// corruption introduced between the ingest and merge phases.
func verifySpills(spills []string) error {
	for _, path := range spills {
		want, err := readChecksumSidecar(path)
		if err != nil {
			return err
		}
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		err = ngramblock.VerifyChecksum(f, want)
		_ = f.Close()
		if err != nil {
			return fmt.Errorf("spill %s: %w", path, err)
		}
	}
	return nil
}

func openSpills(spills []string, order int, cmp ngramblock.Comparator, blockBytes int) ([]ngramblock.RecordSource, []spillCloser, error) {
	sources := make([]ngramblock.RecordSource, 0, len(spills))
	closers := make([]spillCloser, 0, len(spills))
	for _, path := range spills {
		f, err := os.Open(path)
		if err != nil {
			return nil, closers, err
		}
		fr, err := ngramblock.OpenFile(f, order, cmp, blockBytes)
		if err != nil {
			_ = f.Close()
			return nil, closers, err
		}
		sources = append(sources, fr)
		closers = append(closers, spillHandle{f: f, fr: fr})
	}
	return sources, closers, nil
}

type spillCloser interface {
	Close() error
}

type spillHandle struct {
	f  *os.File
	fr *ngramblock.FileReader
}

func (h spillHandle) Close() error {
	_ = h.fr.Close()
	return h.f.Close()
}

// mergeIterator adapts a *ngramblock.MergeReader (a RecordSource-shaped
// type whose Next can fail) into the error-swallowing RecordIterator
// contract Writer.WriteRun expects; the caller checks err after WriteRun.
type mergeIterator struct {
	mr  *ngramblock.MergeReader
	err error
	rec ngramblock.Record
}

func (it *mergeIterator) Next() bool {
	ok, err := it.mr.Next()
	if err != nil {
		it.err = err
		return false
	}
	if !ok {
		return false
	}
	it.rec = ngramblock.Record{Words: it.mr.Words(), Payload: it.mr.Payload()}
	return true
}

func (it *mergeIterator) Record() ngramblock.Record { return it.rec }

// countingIterator wraps another RecordIterator to track the final run's
// entry count and max payload for reporting, without a second merge pass.
type countingIterator struct {
	inner      ngramblock.RecordIterator
	count      *int
	maxPayload *uint64
}

func (it *countingIterator) Next() bool {
	if !it.inner.Next() {
		return false
	}
	*it.count++
	if p := it.inner.Record().Payload; p > *it.maxPayload {
		*it.maxPayload = p
	}
	return true
}

func (it *countingIterator) Record() ngramblock.Record { return it.inner.Record() }
