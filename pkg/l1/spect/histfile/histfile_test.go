package histfile

import (
	"bytes"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWriteRead(t *testing.T) {
	f := &File{
		From:   time.Unix(1476352800, 0),
		To:     time.Unix(1476353400, 0),
		Live:   540 * time.Second,
		Meta:   map[string]string{"serial": "0a0b"},
		Counts: []uint32{0, 12, 3, 0, 7},
	}
	var buf bytes.Buffer
	n, err := f.WriteTo(&buf)
	require.NoError(t, err)
	require.Equal(t, int64(buf.Len()), n)
	require.Equal(t, "-_-\nfrom: 1476352800\nto: 1476353400\nlive: 540.000\nserial: 0a0b\n---\n0\n12\n3\n0\n7\n", buf.String())

	read, err := Read(&buf)
	require.NoError(t, err)
	require.Equal(t, f, read)
	require.Equal(t, uint64(22), read.Total())
}

func TestReadPlain(t *testing.T) {
	// the viewer export without a period
	f, err := Read(strings.NewReader("-_-\n---\n1\n2\n\n3\n"))
	require.NoError(t, err)
	require.Equal(t, []uint32{1, 2, 3}, f.Counts)
	require.Zero(t, f.Duration())
	_, err = f.CPM(0)
	require.Error(t, err)
}

func TestReadInvalid(t *testing.T) {
	testCases := []string{
		"",
		"---\n1\n",
		"-_-\nfrom: 1\n",
		"-_-\nfrom: yesterday\n---\n",
		"-_-\nlive: x\n---\n",
		"-_-\n---\n1\n-2\n",
	}
	for _, input := range testCases {
		_, err := Read(strings.NewReader(input))
		require.Error(t, err, "%q", input)
	}
}

func TestCPM(t *testing.T) {
	testCases := []struct {
		input     string
		threshold int
		cpm       float64
	}{
		{"-_-\nFrom: 100\nTo: 130\n---\n5\n1\n2\n", 1, 6},
		{"-_-\nfrom: 100\nto: 130\n---\n5\n1\n2\n", 0, 16},
		{"-_-\nfrom: 100\nto: 400\nlive: 60\n---\n5\n1\n2\n", 2, 2},
		{"-_-\nfrom: 100\nto: 160\n---\n5\n", 9, 0},
	}
	for _, tc := range testCases {
		f, err := Read(strings.NewReader(tc.input))
		require.NoError(t, err)
		cpm, err := f.CPM(tc.threshold)
		require.NoError(t, err)
		require.Equal(t, tc.cpm, cpm, "%q", tc.input)
	}
}

func TestLoad(t *testing.T) {
	dir, err := ioutil.TempDir("", "histfile")
	require.NoError(t, err)
	defer os.RemoveAll(dir)
	path := filepath.Join(dir, "spectrum.txt")
	require.NoError(t, ioutil.WriteFile(path, []byte("-_-\nfrom: 0\nto: 60\n---\n4\n"), 0644))
	f, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, []uint32{4}, f.Counts)

	_, err = Load(filepath.Join(dir, "missing.txt"))
	require.Error(t, err)
}
