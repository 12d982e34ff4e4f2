package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/papercomputeco/judgebench/pkg/aggregator"
)

// TimestampFormat stamps the output file names of one run.
const TimestampFormat = "20060102_150405"

// Options selects which files Write produces.
type Options struct {
	// Dir receives the files and is created when missing. Defaults to ".".
	Dir string

	Results bool
	Summary bool
	HTML    bool
}

// Files holds the paths Write produced. A path is empty when that file was
// switched off.
type Files struct {
	Results string
	Summary string
	HTML    string
}

// Write stores the results, summary and HTML report of one run, each file
// name stamped with at. It stops at the first failure.
func Write(opts Options, at time.Time, summary aggregator.Summary, entries []aggregator.Entry) (Files, error) {
	var files Files

	dir := opts.Dir
	if dir == "" {
		dir = "."
	}

	if !opts.Results && !opts.Summary && !opts.HTML {
		return files, nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return files, fmt.Errorf("creating output directory %s: %w", dir, err)
	}

	stamp := at.Format(TimestampFormat)

	if opts.Results {
		path := filepath.Join(dir, "result_"+stamp+".json")
		if entries == nil {
			entries = []aggregator.Entry{}
		}
		if err := writeJSON(path, entries); err != nil {
			return files, fmt.Errorf("writing results: %w", err)
		}
		files.Results = path
	}

	if opts.Summary {
		path := filepath.Join(dir, "summary_"+stamp+".json")
		if err := writeJSON(path, summary); err != nil {
			return files, fmt.Errorf("writing summary: %w", err)
		}
		files.Summary = path
	}

	if opts.HTML {
		path := filepath.Join(dir, "report_"+stamp+".html")
		page, err := HTML(summary, entries)
		if err != nil {
			return files, err
		}
		if err := os.WriteFile(path, page, 0o644); err != nil { //nolint:gosec // reports are meant to be shared
			return files, fmt.Errorf("writing report: %w", err)
		}
		files.HTML = path
	}

	return files, nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644) //nolint:gosec // reports are meant to be shared
}

// LoadResults reads a structured results file and recomputes its summary.
func LoadResults(path string) (aggregator.Summary, []aggregator.Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return aggregator.Summary{}, nil, fmt.Errorf("reading results: %w", err)
	}

	var entries []aggregator.Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return aggregator.Summary{}, nil, fmt.Errorf("parsing results %s: %w", path, err)
	}
	if entries == nil {
		return aggregator.Summary{}, nil, errors.New("results file holds no list")
	}

	summary, regrouped := aggregator.Aggregate(aggregator.Flatten(entries))
	return summary, regrouped, nil
}
