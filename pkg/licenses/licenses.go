// Package licenses assembles the per-run credential sections that get
// appended to ingestion configs, and parses that text back into blocks when
// injecting or previewing.
package licenses

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/weathertools/era5-config-updater/pkg/secrets"
)

// apiKeyPattern matches the license reference variables, API_KEY_0,
// API_KEY_1, ... Values are opaque secret references, never raw keys.
var apiKeyPattern = regexp.MustCompile(`^API_KEY_\d+$`)

// Block is one rendered credential section.
type Block struct {
	Section string
	APIURL  string
	APIKey  string
}

// SectionName returns the section injected for the i-th resolved license.
func SectionName(i int) string {
	return fmt.Sprintf("parameters.api%d", i)
}

// EnvReferences extracts license secret references from KEY=VALUE pairs in
// input order. Callers pass os.Environ(); ordering is whatever the process
// environment provides, so a stable environment yields a stable result.
func EnvReferences(environ []string) []string {
	var refs []string
	for _, kv := range environ {
		name, value, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		if apiKeyPattern.MatchString(name) {
			refs = append(refs, value)
		}
	}
	return refs
}

// Collect resolves every reference against the store. The i-th reference
// becomes section parameters.api<i>. The first failure aborts: injecting a
// partial credential set is worse than injecting none.
func Collect(ctx context.Context, store secrets.Store, refs []string) ([]Block, error) {
	blocks := make([]Block, 0, len(refs))
	for i, ref := range refs {
		cred, err := store.Resolve(ctx, ref)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, Block{
			Section: SectionName(i),
			APIURL:  cred.APIURL,
			APIKey:  cred.APIKey,
		})
	}
	log.Debug().Int("licenses", len(blocks)).Msg("resolved license secrets")
	return blocks, nil
}

// Render produces the appendable text form: per block a section-name line,
// an api_url line and an api_key line, each block closed by a blank line.
// The trailing blank line is part of the format: consumers split on "\n\n"
// and drop exactly one empty final segment.
func Render(blocks []Block) string {
	var b strings.Builder
	for _, blk := range blocks {
		b.WriteString(blk.Section)
		b.WriteString("\napi_url=")
		b.WriteString(blk.APIURL)
		b.WriteString("\napi_key=")
		b.WriteString(blk.APIKey)
		b.WriteString("\n\n")
	}
	return b.String()
}

// ParseBlocks splits rendered license text back into blocks. The final
// segment produced by the trailing separator is dropped; every other segment
// must be a section-name line followed by api_url and api_key lines.
func ParseBlocks(text string) ([]Block, error) {
	segments := strings.Split(text, "\n\n")
	segments = segments[:len(segments)-1]

	blocks := make([]Block, 0, len(segments))
	for i, segment := range segments {
		lines := strings.Split(segment, "\n")
		if len(lines) < 3 {
			return nil, fmt.Errorf("malformed license block %d: expected section, api_url and api_key lines", i)
		}
		section := strings.TrimSpace(lines[0])
		if section == "" {
			return nil, fmt.Errorf("malformed license block %d: empty section name", i)
		}
		url, err := keyValue(lines[1], "api_url")
		if err != nil {
			return nil, fmt.Errorf("malformed license block %d: %w", i, err)
		}
		key, err := keyValue(lines[2], "api_key")
		if err != nil {
			return nil, fmt.Errorf("malformed license block %d: %w", i, err)
		}
		blocks = append(blocks, Block{Section: section, APIURL: url, APIKey: key})
	}
	return blocks, nil
}

func keyValue(line, want string) (string, error) {
	name, value, ok := strings.Cut(line, "=")
	if !ok {
		return "", fmt.Errorf("line %q is not key=value", line)
	}
	if strings.TrimSpace(name) != want {
		return "", fmt.Errorf("expected %s line, got %q", want, strings.TrimSpace(name))
	}
	return strings.TrimSpace(value), nil
}
