// Package devedit lets the in-browser dev tools find and edit text in the frontend
// sources. It only runs in the DEV environment and only touches files under src/.
package devedit

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/trezcool/summercamps/core"
)

const (
	sourceDir   = "src"
	maxFileSize = 1 << 20
)

var (
	ErrDisabled      = errors.New("dev editing is disabled")
	ErrOutsideSource = errors.New("path must be inside src/")
	ErrTextNotFound  = errors.New("text not found")
	ErrAmbiguous     = errors.New("text found in several files, specify one")

	textExtensions = map[string]bool{
		".ts": true, ".tsx": true, ".js": true, ".jsx": true, ".mjs": true, ".vue": true,
		".css": true, ".scss": true, ".html": true, ".json": true, ".md": true, ".mdx": true,
		".txt": true, ".svg": true, ".yml": true, ".yaml": true, ".go": true,
	}
)

type (
	FindRequest struct {
		Text string `json:"text" validate:"required"`
		File string `json:"file"`
	}

	Match struct {
		File     string   `json:"file"`
		Line     int      `json:"line"`
		Strategy Strategy `json:"strategy"`
		Snippet  string   `json:"snippet"`
	}

	FindResult struct {
		Found    bool     `json:"found"`
		Strategy Strategy `json:"strategy,omitempty"`
		Matches  []Match  `json:"matches"`
	}

	EditRequest struct {
		File    string `json:"file"`
		OldText string `json:"old_text" validate:"required"`
		NewText string `json:"new_text"`
	}

	EditResult struct {
		File     string   `json:"file"`
		Line     int      `json:"line"`
		Strategy Strategy `json:"strategy"`
		Diff     string   `json:"diff"`
	}
)

type Service struct {
	enabled bool
	srcDir  string // absolute
	logger  core.Logger
}

func NewService(conf core.DevEditConfig, logger core.Logger) *Service {
	svc := &Service{enabled: conf.Enabled, logger: logger}
	if root, err := filepath.Abs(conf.Root); err == nil {
		svc.srcDir = filepath.Join(root, sourceDir)
	} else {
		svc.enabled = false
	}
	return svc
}

func (svc *Service) Enabled() bool { return svc.enabled }

// resolve maps a path relative to the project root (or absolute) to a file under src/.
// It returns the absolute path and the path relative to the project root.
func (svc *Service) resolve(file string) (string, string, error) {
	file = strings.TrimSpace(file)
	abs := file
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(filepath.Dir(svc.srcDir), filepath.FromSlash(file))
	}
	abs = filepath.Clean(abs)

	base := svc.srcDir
	if real, err := filepath.EvalSymlinks(base); err == nil {
		base = real
	}
	if real, err := filepath.EvalSymlinks(abs); err == nil {
		abs = real
	}
	rel, err := filepath.Rel(base, abs)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", "", core.NewValidationError(ErrOutsideSource, core.FieldError{Field: "file", Error: ErrOutsideSource.Error()})
	}
	return abs, filepath.ToSlash(filepath.Join(sourceDir, rel)), nil
}

func readText(path string) (string, os.FileMode, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", 0, errors.Wrap(ErrTextNotFound, filepath.Base(path))
		}
		return "", 0, err
	}
	if info.IsDir() || info.Size() > maxFileSize {
		return "", 0, errors.Wrapf(ErrTextNotFound, "%s is not an editable file", filepath.Base(path))
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", 0, err
	}
	return string(b), info.Mode().Perm(), nil
}

type candidate struct {
	abs, rel string
	content  string
	mode     os.FileMode
	span     span
	strategy Strategy
}

func (svc *Service) findInFile(file, text string) (candidate, bool, error) {
	abs, rel, err := svc.resolve(file)
	if err != nil {
		return candidate{}, false, err
	}
	content, mode, err := readText(abs)
	if err != nil {
		return candidate{}, false, err
	}
	sp, strategy, ok := findIn(content, text)
	return candidate{abs: abs, rel: rel, content: content, mode: mode, span: sp, strategy: strategy}, ok, nil
}

// scan looks for text in every source file.
func (svc *Service) scan(text string) ([]candidate, error) {
	var found []candidate
	err := filepath.WalkDir(svc.srcDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type()&fs.ModeSymlink != 0 {
			return nil // may point outside src/
		}
		if d.IsDir() {
			if path != svc.srcDir && (strings.HasPrefix(d.Name(), ".") || d.Name() == "node_modules") {
				return filepath.SkipDir
			}
			return nil
		}
		if !textExtensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		content, mode, err := readText(path)
		if err != nil {
			return nil
		}
		if sp, strategy, ok := findIn(content, text); ok {
			rel, _ := filepath.Rel(svc.srcDir, path)
			found = append(found, candidate{
				abs: path, rel: filepath.ToSlash(filepath.Join(sourceDir, rel)), content: content, mode: mode, span: sp, strategy: strategy,
			})
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "scanning sources")
	}
	sort.Slice(found, func(i, j int) bool { return found[i].rel < found[j].rel })
	return found, nil
}

// FindText locates text in file, or in every source file when file is empty or does
// not contain it.
func (svc *Service) FindText(req FindRequest) (FindResult, error) {
	if !svc.enabled {
		return FindResult{}, ErrDisabled
	}
	res := FindResult{Matches: []Match{}}
	if req.File != "" {
		c, ok, err := svc.findInFile(req.File, req.Text)
		if err != nil && errors.Cause(err) != ErrTextNotFound {
			return res, err
		}
		if ok {
			res.Found, res.Strategy = true, c.strategy
			res.Matches = append(res.Matches, c.match())
			return res, nil
		}
	}

	found, err := svc.scan(req.Text)
	if err != nil {
		return res, err
	}
	for _, c := range found {
		m := c.match()
		m.Strategy = StrategyMultiFile
		res.Matches = append(res.Matches, m)
	}
	if len(found) > 0 {
		res.Found, res.Strategy = true, StrategyMultiFile
	}
	return res, nil
}

// Edit replaces the first match of req.OldText with req.NewText. Without a file, or when
// the file does not contain the text, the edit only happens if exactly one source file
// matches.
func (svc *Service) Edit(req EditRequest) (EditResult, error) {
	if !svc.enabled {
		return EditResult{}, ErrDisabled
	}

	var target candidate
	var ok bool
	if req.File != "" {
		c, found, err := svc.findInFile(req.File, req.OldText)
		if err != nil && errors.Cause(err) != ErrTextNotFound {
			return EditResult{}, err
		}
		target, ok = c, found
	}
	if !ok {
		found, err := svc.scan(req.OldText)
		if err != nil {
			return EditResult{}, err
		}
		switch len(found) {
		case 0:
			return EditResult{}, ErrTextNotFound
		case 1:
			target = found[0]
			target.strategy = StrategyMultiFile
		default:
			files := make([]string, len(found))
			for i, c := range found {
				files[i] = c.rel
			}
			return EditResult{}, errors.Wrap(ErrAmbiguous, strings.Join(files, ", "))
		}
	}

	updated := target.content[:target.span.start] + req.NewText + target.content[target.span.end:]
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(target.content),
		B:        difflib.SplitLines(updated),
		FromFile: "a/" + target.rel,
		ToFile:   "b/" + target.rel,
		Context:  3,
	})
	if err != nil {
		return EditResult{}, errors.Wrap(err, "computing diff")
	}
	if err := os.WriteFile(target.abs, []byte(updated), target.mode); err != nil {
		return EditResult{}, errors.Wrapf(err, "writing %s", target.rel)
	}
	svc.logger.Info("devedit: " + string(target.strategy) + " edit of " + target.rel)

	return EditResult{
		File:     target.rel,
		Line:     lineOf(target.content, target.span.start),
		Strategy: target.strategy,
		Diff:     diff,
	}, nil
}

func (c candidate) match() Match {
	line := lineOf(c.content, c.span.start)
	lines := strings.Split(c.content, "\n")
	return Match{File: c.rel, Line: line, Strategy: c.strategy, Snippet: strings.TrimSpace(lines[line-1])}
}
