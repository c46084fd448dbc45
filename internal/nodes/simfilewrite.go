package nodes

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/stepmix/varadero/internal/chart"
	"github.com/stepmix/varadero/internal/encoder"
	"github.com/stepmix/varadero/internal/pipeline"
)

// SimfileWrite is the pipeline's sink node: it drains its input bucket,
// groups charts by music file and writes one simfile per group under the
// output root. Successful writes are recorded in the catalog.
type SimfileWrite struct {
	From BucketRef `yaml:"from"`

	// Output root directory; falls back to the "output" store global.
	Output string `yaml:"output"`

	Logger  *slog.Logger `yaml:"-"`
	Catalog Catalog      `yaml:"-"`
}

func (s *SimfileWrite) Buckets() []pipeline.Slot {
	return []pipeline.Slot{
		{Kind: pipeline.Input, ID: s.From.id()},
	}
}

func (s *SimfileWrite) Apply(store *pipeline.Store) error {
	output := s.Output
	if output == "" {
		var err error
		output, err = store.GlobalGetExpect("output")
		if err != nil {
			return err
		}
	}
	logger := s.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return store.Get(s.From.id(), func(store *pipeline.Store, list []*chart.Chart) error {
		for _, group := range groupByMusic(list) {
			if err := s.writeGroup(store, output, group, logger); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *SimfileWrite) writeGroup(store *pipeline.Store, output string, group []*chart.Chart, logger *slog.Logger) error {
	// Blocks sort easiest-first inside the simfile.
	sort.SliceStable(group, func(i, j int) bool {
		return group[i].DifficultyNum < group[j].DifficultyNum
	})
	main := group[0]

	dirName := sanitizeName(fmt.Sprintf("%s - %s", main.ArtistTrans, main.TitleTrans))
	if dirName == "" {
		dirName = sanitizeName(main.Title)
	}
	outDir := filepath.Join(output, dirName)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	outPath := filepath.Join(outDir, dirName+".sm")
	if err := encoder.WriteFile(outPath, group); err != nil {
		return fmt.Errorf("write %s: %w", outPath, err)
	}
	logger.Info("wrote simfile", "path", outPath, "charts", len(group))

	if s.Catalog != nil {
		hash, ok := store.GlobalGet("set-hash:" + setKey(main))
		if ok {
			sourceDir, _ := store.GlobalGet("set-dir:" + setKey(main))
			if err := s.Catalog.RecordConversion(hash, sourceDir, outPath, len(group)); err != nil {
				return fmt.Errorf("record conversion: %w", err)
			}
		}
	}
	return nil
}

// groupByMusic splits a list into per-song groups, preserving order.
func groupByMusic(list []*chart.Chart) [][]*chart.Chart {
	var order []string
	byMusic := make(map[string][]*chart.Chart)
	for _, c := range list {
		if _, ok := byMusic[c.Music]; !ok {
			order = append(order, c.Music)
		}
		byMusic[c.Music] = append(byMusic[c.Music], c)
	}
	groups := make([][]*chart.Chart, 0, len(order))
	for _, music := range order {
		groups = append(groups, byMusic[music])
	}
	return groups
}

// sanitizeName makes a string safe to use as a file name.
func sanitizeName(name string) string {
	var sb strings.Builder
	for _, r := range name {
		switch {
		case r == '/' || r == '\\' || r == ':' || r == '*' || r == '?' ||
			r == '"' || r == '<' || r == '>' || r == '|':
			sb.WriteByte('_')
		case r < 0x20:
			// drop control characters
		default:
			sb.WriteRune(r)
		}
	}
	return strings.TrimSpace(sb.String())
}
