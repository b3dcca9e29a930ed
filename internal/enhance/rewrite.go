package enhance

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/quillmate/quillmate/internal/prompt"
	"github.com/quillmate/quillmate/internal/session"
)

// ErrStale is returned when a file changed between rewrite and apply, or
// since the rewrite being undone.
var ErrStale = errors.New("file changed since the rewrite")

// Result is a finished rewrite of a file selection.
type Result struct {
	Path      string
	Mode      prompt.Mode
	Range     Range
	Original  string
	Rewritten string
}

// notePath returns the absolute form of path, the key rewrite history is
// recorded and looked up under.
func notePath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", path, err)
	}
	return abs, nil
}

// RewriteFile rewrites the lines in r of the file at path (the whole file
// for a zero r). The file is not modified. Result.Path is absolute.
func (s *Service) RewriteFile(ctx context.Context, path string, r Range, mode prompt.Mode) (*Result, error) {
	path, err := notePath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	r, text, err := ParseDocument(string(data)).Select(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	out, err := s.Enhance(ctx, text, mode)
	if err != nil {
		return nil, err
	}
	return &Result{Path: path, Mode: mode, Range: r, Original: text, Rewritten: out}, nil
}

// Apply writes res into its file and records it in history (when non-nil)
// so it can be undone. The selection must still hold the original text.
func (s *Service) Apply(res *Result, history session.RewriteStore) error {
	info, err := os.Stat(res.Path)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(res.Path)
	if err != nil {
		return err
	}
	doc := ParseDocument(string(data))
	if _, cur, err := doc.Select(res.Range); err != nil || cur != res.Original {
		return fmt.Errorf("%s: %w", res.Path, ErrStale)
	}

	placed := doc.Replace(res.Range, res.Rewritten)
	if err := os.WriteFile(res.Path, []byte(doc.String()), info.Mode().Perm()); err != nil {
		return err
	}

	if history != nil {
		key, err := notePath(res.Path)
		if err != nil {
			return err
		}
		rec := &session.Rewrite{
			Path:      key,
			StartLine: placed.Start,
			EndLine:   placed.End,
			Original:  res.Original,
			Rewritten: res.Rewritten,
		}
		if err := history.AddRewrite(rec); err != nil {
			return fmt.Errorf("record rewrite: %w", err)
		}
	}
	s.log.Info("rewrite applied", zap.String("path", res.Path), zap.Stringer("lines", res.Range))
	return nil
}

// Undo restores the most recent applied rewrite of path and removes it from
// history. The rewritten lines must be unchanged.
func (s *Service) Undo(path string, history session.RewriteStore) (*session.Rewrite, error) {
	path, err := notePath(path)
	if err != nil {
		return nil, err
	}
	rec, err := history.LastRewrite(path)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	doc := ParseDocument(string(data))
	r := Range{Start: rec.StartLine, End: rec.EndLine}
	if selectRaw(doc, r) != rec.Rewritten {
		return nil, fmt.Errorf("%s: %w", path, ErrStale)
	}

	doc.Replace(r, rec.Original)
	if err := os.WriteFile(path, []byte(doc.String()), info.Mode().Perm()); err != nil {
		return nil, err
	}
	if err := history.DeleteRewrite(rec.ID); err != nil {
		return nil, fmt.Errorf("forget rewrite: %w", err)
	}
	s.log.Info("rewrite undone", zap.String("path", path), zap.Int("start_line", rec.StartLine))
	return rec, nil
}

// selectRaw returns the lines in r without the emptiness checks of Select.
func selectRaw(d Document, r Range) string {
	if r.Start < 1 || r.End < r.Start || r.End > len(d.lines) {
		return ""
	}
	return strings.Join(d.lines[r.Start-1:r.End], "\n")
}
