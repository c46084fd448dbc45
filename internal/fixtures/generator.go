// Package fixtures emits small synthetic beatmap sets with known timing
// and note patterns, for tests and demos.
package fixtures

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Config controls which fixture sets are emitted.
type Config struct {
	OutputDir string

	IncludeDense bool // 4K stream at a fixed tempo
	IncludeHolds bool // 7K chart dominated by holds
	IncludeRamp  bool // 4K chart with a mid-song BPM change
}

// Manifest describes the generated fixtures for tests/consumers.
type Manifest struct {
	Fixtures []ManifestFixture `json:"fixtures"`
}

type ManifestFixture struct {
	Dir      string  `json:"dir"`
	File     string  `json:"file"`
	Type     string  `json:"type"`
	KeyCount int     `json:"key_count"`
	BPM      float64 `json:"bpm"`
	Notes    int     `json:"notes"`
}

// Generate writes beatmap sets and a manifest.json into OutputDir.
func Generate(cfg Config) (*Manifest, error) {
	if cfg.OutputDir == "" {
		cfg.OutputDir = "./testdata/beatmaps"
	}
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir output: %w", err)
	}

	manifest := &Manifest{}

	if cfg.IncludeDense {
		fx, err := writeSet(cfg.OutputDir, "fixture-dense", denseStream())
		if err != nil {
			return nil, err
		}
		manifest.Fixtures = append(manifest.Fixtures, fx)
	}
	if cfg.IncludeHolds {
		fx, err := writeSet(cfg.OutputDir, "fixture-holds", holdsChart())
		if err != nil {
			return nil, err
		}
		manifest.Fixtures = append(manifest.Fixtures, fx)
	}
	if cfg.IncludeRamp {
		fx, err := writeSet(cfg.OutputDir, "fixture-ramp", bpmRamp())
		if err != nil {
			return nil, err
		}
		manifest.Fixtures = append(manifest.Fixtures, fx)
	}

	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(filepath.Join(cfg.OutputDir, "manifest.json"), data, 0o644); err != nil {
		return nil, err
	}
	return manifest, nil
}

// fixture holds one synthetic beatmap before serialization.
type fixture struct {
	typ          string
	title        string
	version      string
	keyCount     int
	bpm          float64
	timingPoints []string
	hitObjects   []string
}

func writeSet(outputDir, dirName string, fx fixture) (ManifestFixture, error) {
	dir := filepath.Join(outputDir, dirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return ManifestFixture{}, err
	}
	file := filepath.Join(dir, dirName+".osu")
	if err := os.WriteFile(file, []byte(fx.render()), 0o644); err != nil {
		return ManifestFixture{}, err
	}
	return ManifestFixture{
		Dir:      dir,
		File:     file,
		Type:     fx.typ,
		KeyCount: fx.keyCount,
		BPM:      fx.bpm,
		Notes:    len(fx.hitObjects),
	}, nil
}

func (fx fixture) render() string {
	var sb strings.Builder
	sb.WriteString("osu file format v14\n\n")
	sb.WriteString("[General]\n")
	sb.WriteString("AudioFilename: audio.mp3\n")
	sb.WriteString("PreviewTime: 5000\n")
	sb.WriteString("Mode: 3\n\n")
	sb.WriteString("[Metadata]\n")
	fmt.Fprintf(&sb, "Title:%s\n", fx.title)
	fmt.Fprintf(&sb, "TitleUnicode:%s\n", fx.title)
	sb.WriteString("Artist:Stepmix Fixtures\n")
	sb.WriteString("ArtistUnicode:Stepmix Fixtures\n")
	sb.WriteString("Creator:fixturegen\n")
	fmt.Fprintf(&sb, "Version:%s\n", fx.version)
	sb.WriteString("Source:synthetic\n\n")
	sb.WriteString("[Difficulty]\n")
	fmt.Fprintf(&sb, "CircleSize:%d\n\n", fx.keyCount)
	sb.WriteString("[Events]\n")
	sb.WriteString("0,0,\"bg.jpg\",0,0\n\n")
	sb.WriteString("[TimingPoints]\n")
	for _, tp := range fx.timingPoints {
		sb.WriteString(tp)
		sb.WriteByte('\n')
	}
	sb.WriteString("\n[HitObjects]\n")
	for _, obj := range fx.hitObjects {
		sb.WriteString(obj)
		sb.WriteByte('\n')
	}
	return sb.String()
}

// columnX returns the X coordinate at the center of a mania column.
func columnX(key, keyCount int) int {
	return (512*key + 256) / keyCount
}

// denseStream is a 4K eighth-note stream at 120 BPM cycling the columns.
func denseStream() fixture {
	fx := fixture{
		typ:          "dense",
		title:        "Dense Stream",
		version:      "4K Stream",
		keyCount:     4,
		bpm:          120,
		timingPoints: []string{"0,500,4,2,0,100,1,0"},
	}
	for i := 0; i < 64; i++ {
		t := i * 250
		key := i % 4
		fx.hitObjects = append(fx.hitObjects,
			fmt.Sprintf("%d,192,%d,1,0,0:0:0:0:", columnX(key, 4), t))
	}
	return fx
}

// holdsChart is a 7K chart of one-beat holds marching across the columns,
// with hits filling the off-beats.
func holdsChart() fixture {
	fx := fixture{
		typ:          "holds",
		title:        "Hold The Line",
		version:      "7K Holds",
		keyCount:     7,
		bpm:          150,
		timingPoints: []string{"0,400,4,2,0,100,1,0"},
	}
	for i := 0; i < 32; i++ {
		t := i * 800
		key := i % 7
		fx.hitObjects = append(fx.hitObjects,
			fmt.Sprintf("%d,192,%d,128,0,%d:0:0:0:0:", columnX(key, 7), t, t+400))
		hitKey := (i + 3) % 7
		fx.hitObjects = append(fx.hitObjects,
			fmt.Sprintf("%d,192,%d,1,0,0:0:0:0:", columnX(hitKey, 7), t+400))
	}
	return fx
}

// bpmRamp is a 4K chart that doubles its tempo halfway through.
func bpmRamp() fixture {
	fx := fixture{
		typ:      "ramp",
		title:    "Shift Up",
		version:  "4K Ramp",
		keyCount: 4,
		bpm:      100,
		timingPoints: []string{
			"0,600,4,2,0,100,1,0",
			"9600,300,4,2,0,100,1,0",
		},
	}
	for i := 0; i < 16; i++ {
		t := i * 600
		fx.hitObjects = append(fx.hitObjects,
			fmt.Sprintf("%d,192,%d,1,0,0:0:0:0:", columnX(i%4, 4), t))
	}
	for i := 0; i < 16; i++ {
		t := 9600 + i*300
		fx.hitObjects = append(fx.hitObjects,
			fmt.Sprintf("%d,192,%d,1,0,0:0:0:0:", columnX((i*3)%4, 4), t))
	}
	return fx
}
