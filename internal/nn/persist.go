package nn

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// Model files hold one record per layer, separated by blank lines:
//
//	LAYER_ACTIVATION relu
//	SIZE 32
//	INPUT_COUNT 52
//	WEIGHTS_MULTIPLIER 1
//	<one line per weight row>
//	<one line with the biases>
//
// The input layer record has the four header lines only.
var headerKeys = [...]string{"LAYER_ACTIVATION", "SIZE", "INPUT_COUNT", "WEIGHTS_MULTIPLIER"}

// Save writes the network in the text model format.
func (n *Network) Save(w io.Writer) error {
	bw := bufio.NewWriter(w)
	for i, l := range n.layers {
		if i > 0 {
			bw.WriteString("\n")
		}
		fmt.Fprintf(bw, "LAYER_ACTIVATION %s\n", l.Activation)
		fmt.Fprintf(bw, "SIZE %d\n", l.Size)
		fmt.Fprintf(bw, "INPUT_COUNT %d\n", l.InputCount)
		fmt.Fprintf(bw, "WEIGHTS_MULTIPLIER %s\n", formatFloat(l.WeightsMultiplier))
		if l.Activation == Input {
			continue
		}
		for r := 0; r < l.Size; r++ {
			writeFloats(bw, l.Weights.RawRowView(r))
		}
		writeFloats(bw, l.Bias.RawVector().Data)
	}
	return bw.Flush()
}

// SaveFile writes the network to path.
func (n *Network) SaveFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := n.Save(f); err != nil {
		f.Close()
		return fmt.Errorf("saving model %s: %w", path, err)
	}
	return f.Close()
}

func writeFloats(bw *bufio.Writer, vals []float64) {
	for i, v := range vals {
		if i > 0 {
			bw.WriteByte(' ')
		}
		bw.WriteString(formatFloat(v))
	}
	bw.WriteByte('\n')
}

// formatFloat uses the shortest representation that parses back exactly.
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// Load reads a network in the text model format. Any missing header, count
// mismatch or unparsable number fails the whole load.
func Load(r io.Reader) (*Network, error) {
	records, err := splitRecords(r)
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("model has %d layers, need at least 2", len(records))
	}

	n := &Network{layers: make([]*Layer, 0, len(records))}
	for i, rec := range records {
		l, err := parseLayer(rec)
		if err != nil {
			return nil, fmt.Errorf("layer %d: %w", i, err)
		}
		switch {
		case i == 0 && l.Activation != Input:
			return nil, fmt.Errorf("layer 0: first layer must be input_layer, got %s", l.Activation)
		case i > 0 && l.Activation == Input:
			return nil, fmt.Errorf("layer %d: %w", i, ErrInputActivation)
		case i > 0 && l.InputCount != n.layers[i-1].Size:
			return nil, fmt.Errorf("layer %d: INPUT_COUNT %d does not match previous layer size %d", i, l.InputCount, n.layers[i-1].Size)
		}
		n.layers = append(n.layers, l)
	}
	return n, nil
}

// LoadFile reads a network from path.
func LoadFile(path string) (*Network, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	n, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("loading model %s: %w", path, err)
	}
	return n, nil
}

func splitRecords(r io.Reader) ([][]string, error) {
	var records [][]string
	var cur []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			if len(cur) > 0 {
				records = append(records, cur)
				cur = nil
			}
			continue
		}
		cur = append(cur, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading model: %w", err)
	}
	if len(cur) > 0 {
		records = append(records, cur)
	}
	return records, nil
}

func parseLayer(lines []string) (*Layer, error) {
	if len(lines) < len(headerKeys) {
		return nil, fmt.Errorf("expected %d header lines, got %d", len(headerKeys), len(lines))
	}
	vals := make([]string, len(headerKeys))
	for i, key := range headerKeys {
		fields := strings.Fields(lines[i])
		if len(fields) != 2 || fields[0] != key {
			return nil, fmt.Errorf("missing header %s, got %q", key, lines[i])
		}
		vals[i] = fields[1]
	}

	act, err := ParseActivation(vals[0])
	if err != nil {
		return nil, err
	}
	size, err := strconv.Atoi(vals[1])
	if err != nil || size < 1 {
		return nil, fmt.Errorf("bad SIZE %q", vals[1])
	}
	inputCount, err := strconv.Atoi(vals[2])
	if err != nil || inputCount < 0 {
		return nil, fmt.Errorf("bad INPUT_COUNT %q", vals[2])
	}
	multiplier, err := strconv.ParseFloat(vals[3], 64)
	if err != nil {
		return nil, fmt.Errorf("bad WEIGHTS_MULTIPLIER %q", vals[3])
	}

	l := &Layer{Activation: act, Size: size, InputCount: inputCount, WeightsMultiplier: multiplier}
	body := lines[len(headerKeys):]
	if act == Input {
		if len(body) != 0 {
			return nil, fmt.Errorf("input layer carries %d unexpected lines", len(body))
		}
		return l, nil
	}
	if inputCount < 1 {
		return nil, fmt.Errorf("INPUT_COUNT must be positive for a %s layer", act)
	}
	if len(body) != size+1 {
		return nil, fmt.Errorf("expected %d weight rows and 1 bias row, got %d lines", size, len(body))
	}

	w := make([]float64, 0, size*inputCount)
	for r := 0; r < size; r++ {
		row, err := parseFloats(body[r], inputCount)
		if err != nil {
			return nil, fmt.Errorf("weight row %d: %w", r, err)
		}
		w = append(w, row...)
	}
	b, err := parseFloats(body[size], size)
	if err != nil {
		return nil, fmt.Errorf("bias row: %w", err)
	}
	l.Weights = mat.NewDense(size, inputCount, w)
	l.Bias = mat.NewVecDense(size, b)
	return l, nil
}

func parseFloats(line string, want int) ([]float64, error) {
	fields := strings.Fields(line)
	if len(fields) != want {
		return nil, fmt.Errorf("expected %d values, got %d", want, len(fields))
	}
	out := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
