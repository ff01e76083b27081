/*
PURPOSE:
  Heuristic classifier: cuts a free-text answer into six sections by
  looking for the next section number on each line.

REQUIREMENTS:
  User-specified:
  - Exactly six sections; the marker line belongs to the section it opens.

  Implementation-discovered:
  - Answers saved on Windows keep CRLF, so line endings are copied as read.

ARCHITECTURE INTEGRATION:
  - Called by: internal/classify/folder.go, internal/cli/classify.go

ERROR HANDLING:
  - Only reader errors are returned.

IMPLEMENTATION RULES:
  - Only the next number can open a section; sections are never skipped.

USAGE:
  sections, err := classify.Split(strings.NewReader(answer))

SELF-HEALING INSTRUCTIONS:
  - None.

RELATED FILES:
  - internal/classify/model.go

MAINTENANCE:
  - None.
*/

package classify

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/daryltucker/medvision-runner/internal/model"
)

// Split partitions a free-text answer into the six numbered sections.
//
// Lines are scanned in order with a current section index starting at 0.
// A line whose trimmed text contains "<index+2>." opens the next section
// (at most five times). Every line, marker lines included, is appended to
// the current section with its line ending intact.
func Split(r io.Reader) (model.Sections, error) {
	var out model.Sections
	var builders [model.SectionCount]strings.Builder
	current := 0

	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if line != "" {
			if current < model.SectionCount-1 && strings.Contains(strings.TrimSpace(line), strconv.Itoa(current+2)+".") {
				current++
			}
			builders[current].WriteString(line)
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return out, err
		}
	}

	for i := range builders {
		out[i] = builders[i].String()
	}
	return out, nil
}

// Heuristic classifies with Split.
type Heuristic struct{}

// Name identifies the strategy.
func (Heuristic) Name() string { return "heuristic" }

// Classify never calls out; it only fails on read errors.
func (Heuristic) Classify(_ context.Context, content string) (model.Sections, Status, error) {
	s, err := Split(strings.NewReader(content))
	if err != nil {
		return s, StatusFailed, err
	}
	return s, StatusOK, nil
}
