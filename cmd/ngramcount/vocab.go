package main

import (
	"bufio"
	"os"
	"strconv"
	"strings"

	ngramblock "github.com/kneserney/ngramblock"
)

const (
	startToken = "<s>"
	endToken   = "</s>"
)

// vocabulary assigns dense word ids to tokens on first sight, in the
// order the core's WordID type expects: a non-negative integer
// identifying a token in a vocabulary built upstream.
type vocabulary struct {
	ids    map[string]ngramblock.WordID
	tokens []string
}

func newVocabulary() *vocabulary {
	return &vocabulary{ids: make(map[string]ngramblock.WordID)}
}

// id returns tok's word id, assigning the next one if tok is new.
func (v *vocabulary) id(tok string) ngramblock.WordID {
	if id, ok := v.ids[tok]; ok {
		return id
	}
	id := ngramblock.WordID(len(v.tokens))
	v.ids[tok] = id
	v.tokens = append(v.tokens, tok)
	return id
}

func (v *vocabulary) size() int { return len(v.tokens) }

// writeTo persists the vocabulary as one "token\tid" line per entry, so
// a downstream estimator can map a merged block file's word ids back to
// tokens without re-tokenizing the corpus.
func (v *vocabulary) writeTo(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	bw := bufio.NewWriter(f)
	for id, tok := range v.tokens {
		if _, err := bw.WriteString(tok); err != nil {
			return err
		}
		if err := bw.WriteByte('\t'); err != nil {
			return err
		}
		if _, err := bw.WriteString(strconv.Itoa(id)); err != nil {
			return err
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// splitFields tokenizes one line of the corpus on whitespace.
func splitFields(line string) []string {
	return strings.Fields(line)
}
