// Package dataio reads and writes the estimator's data files. The format is
// chosen by extension: .json for JSON, .yaml or .yml for YAML.
package dataio

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ieee0824/fujisakiest-go/estimation"
	"github.com/ieee0824/fujisakiest-go/fujisaki"
	"github.com/ieee0824/fujisakiest-go/hmm"
)

// ErrUnsupportedFormat is returned for file extensions other than .json, .yaml and .yml.
var ErrUnsupportedFormat = errors.New("dataio: unsupported file format")

type format int

const (
	formatJSON format = iota
	formatYAML
)

func formatOf(path string) (format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return formatJSON, nil
	case ".yaml", ".yml":
		return formatYAML, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupportedFormat, path)
}

func readFile(path string) ([]byte, format, error) {
	f, err := formatOf(path)
	if err != nil {
		return nil, 0, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %w", estimation.StatusNoFile, err)
	}
	return data, f, nil
}

// Load decodes the file at path into v.
func Load(path string, v any) error {
	data, f, err := readFile(path)
	if err != nil {
		return err
	}
	if err := decode(data, f, v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func decode(data []byte, f format, v any) error {
	if f == formatYAML {
		return yaml.Unmarshal(data, v)
	}
	return json.Unmarshal(data, v)
}

// isList reports whether the document's top level is an array.
func isList(data []byte, f format) (bool, error) {
	if f == formatJSON {
		trimmed := bytes.TrimSpace(data)
		return len(trimmed) > 0 && trimmed[0] == '[', nil
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return false, err
	}
	if doc.Kind == yaml.DocumentNode && len(doc.Content) > 0 {
		return doc.Content[0].Kind == yaml.SequenceNode, nil
	}
	return doc.Kind == yaml.SequenceNode, nil
}

// LoadInputs reads one input object or an array of them.
func LoadInputs(path string) ([]estimation.Input, error) {
	data, f, err := readFile(path)
	if err != nil {
		return nil, err
	}
	list, err := isList(data, f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if list {
		var ins []estimation.Input
		if err := decode(data, f, &ins); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
		return ins, nil
	}
	var in estimation.Input
	if err := decode(data, f, &in); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return []estimation.Input{in}, nil
}

// LoadTransParams reads a transition parameter file.
func LoadTransParams(path string) (hmm.TransParams, error) {
	var tp hmm.TransParams
	err := Load(path, &tp)
	return tp, err
}

type constraintFile struct {
	ConstraintData [][]estimation.StochasticConstraint `json:"constraintData" yaml:"constraintData"`
}

// LoadConstraints reads the per-signal accent constraints stored under
// the constraintData key.
func LoadConstraints(path string) ([][]estimation.StochasticConstraint, error) {
	var cf constraintFile
	if err := Load(path, &cf); err != nil {
		return nil, err
	}
	return cf.ConstraintData, nil
}

// LoadCommands reads one command list per signal.
func LoadCommands(path string) ([][]fujisaki.Command, error) {
	var cmds [][]fujisaki.Command
	err := Load(path, &cmds)
	return cmds, err
}

// WriteFile encodes v to path as indented JSON or YAML.
func WriteFile(path string, v any) error {
	f, err := formatOf(path)
	if err != nil {
		return err
	}
	var data []byte
	if f == formatYAML {
		data, err = yaml.Marshal(v)
	} else {
		data, err = json.MarshalIndent(v, "", "  ")
		data = append(data, '\n')
	}
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// ReadVector parses one number per line. Blank lines are skipped.
func ReadVector(r io.Reader) ([]float64, error) {
	var v []float64
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		s := strings.TrimSpace(sc.Text())
		if s == "" {
			continue
		}
		x, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		v = append(v, x)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return v, nil
}

// ReadVectorFile reads a text vector file.
func ReadVectorFile(path string) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", estimation.StatusNoFile, err)
	}
	defer f.Close()
	v, err := ReadVector(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return v, nil
}

// ReadScalarFile reads the first number of a text vector file.
func ReadScalarFile(path string) (float64, error) {
	v, err := ReadVectorFile(path)
	if err != nil {
		return 0, err
	}
	if len(v) == 0 {
		return 0, fmt.Errorf("read %s: no value", path)
	}
	return v[0], nil
}

// InputFromVectors assembles an Input from raw per-frame vectors. All
// vectors must have the same non-zero length.
func InputFromVectors(fs float64, lf0, vuv, mup, mua []float64, mub float64) (estimation.Input, error) {
	n := len(lf0)
	if n < 1 || len(vuv) != n || len(mup) != n || len(mua) != n {
		return estimation.Input{}, fmt.Errorf("%w: lf0=%d vuv=%d mup=%d mua=%d",
			estimation.StatusInputVectorSizeMismatch, len(lf0), len(vuv), len(mup), len(mua))
	}
	return estimation.Input{
		Fs:         fs,
		LogF0:      lf0,
		VUV:        vuv,
		InitialUp:  mup,
		InitialUa:  mua,
		InitialMub: mub,
	}, nil
}
