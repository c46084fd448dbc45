package nodes

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/stepmix/varadero/internal/chart"
	"github.com/stepmix/varadero/internal/osu"
	"github.com/stepmix/varadero/internal/pipeline"
)

// Catalog is the subset of the conversion catalog the endpoint nodes use.
// A nil catalog disables skip/record behavior.
type Catalog interface {
	IsConverted(contentHash string) (bool, error)
	RecordConversion(contentHash, sourceDir, outputPath string, chartCount int) error
}

// ChartLoad is the pipeline's source node: it walks a beatmap library,
// parses every set and deposits one chart list per set into its output
// bucket. Sets already present in the catalog are skipped unless Rescan.
type ChartLoad struct {
	Into BucketRef `yaml:"into"`

	// Root of the library; falls back to the "root" store global.
	Root   string `yaml:"root"`
	Rescan bool   `yaml:"rescan"`

	Logger  *slog.Logger `yaml:"-"`
	Catalog Catalog      `yaml:"-"`
}

func (l *ChartLoad) Buckets() []pipeline.Slot {
	return []pipeline.Slot{
		{Kind: pipeline.Output, ID: l.Into.id()},
	}
}

func (l *ChartLoad) Apply(store *pipeline.Store) error {
	root := l.Root
	if root == "" {
		var err error
		root, err = store.GlobalGetExpect("root")
		if err != nil {
			return err
		}
	}
	logger := l.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	sets, err := findSets(root)
	if err != nil {
		return fmt.Errorf("scan %s: %w", root, err)
	}
	logger.Info("scanned library", "root", root, "sets", len(sets))

	loaded := 0
	for _, set := range sets {
		hash, err := hashFiles(set.files)
		if err != nil {
			return err
		}
		if l.Catalog != nil && !l.Rescan {
			done, err := l.Catalog.IsConverted(hash)
			if err != nil {
				return err
			}
			if done {
				logger.Debug("set already converted, skipping", "dir", set.dir)
				continue
			}
		}
		list, err := loadSet(set, logger)
		if err != nil {
			return err
		}
		if len(list) == 0 {
			continue
		}
		// Out-of-band info for the sink node.
		for _, c := range list {
			store.GlobalSet("set-hash:"+setKey(c), hash)
			store.GlobalSet("set-dir:"+setKey(c), set.dir)
		}
		if err := store.Put(l.Into.id(), list); err != nil {
			return err
		}
		loaded++
	}
	logger.Info("loaded beatmap sets", "loaded", loaded, "skipped", len(sets)-loaded)
	return nil
}

// setKey identifies a chart's source set in the store globals. Title and
// music name together survive every transform the pipeline applies.
func setKey(c *chart.Chart) string {
	return c.TitleTrans + "\x00" + c.Music
}

// beatmapSet is one set directory and its chart files, sorted for
// deterministic processing.
type beatmapSet struct {
	dir   string
	files []string
}

func findSets(root string) ([]beatmapSet, error) {
	byDir := make(map[string][]string)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable entries are skipped, not fatal.
			return nil
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".osu") {
			return nil
		}
		dir := filepath.Dir(path)
		byDir[dir] = append(byDir[dir], path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sets := make([]beatmapSet, 0, len(byDir))
	for dir, files := range byDir {
		sort.Strings(files)
		sets = append(sets, beatmapSet{dir: dir, files: files})
	}
	sort.Slice(sets, func(i, j int) bool { return sets[i].dir < sets[j].dir })
	return sets, nil
}

func loadSet(set beatmapSet, logger *slog.Logger) ([]*chart.Chart, error) {
	list := make([]*chart.Chart, 0, len(set.files))
	for _, file := range set.files {
		bm, err := osu.ParseFile(file)
		if err != nil {
			return nil, err
		}
		c, err := bm.ToChart()
		if errors.Is(err, osu.ErrNotMania) {
			logger.Debug("skipping non-mania beatmap", "file", file)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("convert %s: %w", file, err)
		}
		list = append(list, c)
	}
	return list, nil
}

// hashFiles hashes the first 64KB of each file; the hash identifies set
// content, not bytes on disk, so it only has to be fast and stable.
func hashFiles(files []string) (string, error) {
	h := sha256.New()
	for _, file := range files {
		f, err := os.Open(file)
		if err != nil {
			return "", err
		}
		_, err = io.CopyN(h, f, 64*1024)
		f.Close()
		if err != nil && err != io.EOF {
			return "", err
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
