package server

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitgrove/mimic/pkg/config"
)

const duplicateSource = `def process_records(records):
    total = 0
    for record in records:
        if record.active:
            total += record.value
        else:
            total -= record.penalty
    if total < 0:
        total = 0
    return total
`

// writeFixtures creates a directory holding two identical Python files.
func writeFixtures(t *testing.T) (dir, fileA, fileB string) {
	t.Helper()
	dir = t.TempDir()
	fileA = filepath.Join(dir, "alpha.py")
	fileB = filepath.Join(dir, "beta.py")
	require.NoError(t, os.WriteFile(fileA, []byte(duplicateSource), 0o644))
	require.NoError(t, os.WriteFile(fileB, []byte(duplicateSource), 0o644))
	return dir, fileA, fileB
}

// startServer runs a server on a socket under a test temp dir and tears it
// down with the test.
func startServer(t *testing.T, cfg *config.Config) string {
	t.Helper()
	socketPath := filepath.Join(t.TempDir(), "mimic.sock")

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- New(cfg).Serve(ctx, socketPath)
	}()

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-errCh:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("server did not stop after cancel")
		}
	})
	return socketPath
}

type testClient struct {
	t    *testing.T
	conn net.Conn
	r    *bufio.Reader
}

func dialServer(t *testing.T, socketPath string) *testClient {
	t.Helper()
	var conn net.Conn
	require.Eventually(t, func() bool {
		var err error
		conn, err = net.Dial("unix", socketPath)
		return err == nil
	}, 2*time.Second, 20*time.Millisecond, "server never came up on %s", socketPath)

	t.Cleanup(func() {
		if conn != nil {
			conn.Close()
		}
	})
	return &testClient{t: t, conn: conn, r: bufio.NewReader(conn)}
}

// call sends one request and reads one response.
func (c *testClient) call(id any, method string, params any) map[string]any {
	c.t.Helper()
	req := map[string]any{"id": id, "method": method}
	if params != nil {
		req["params"] = params
	}
	data, err := json.Marshal(req)
	require.NoError(c.t, err)

	_, err = c.conn.Write(append(data, '\n'))
	require.NoError(c.t, err)
	return c.readResponse()
}

// sendRaw writes a raw line, for requests that must not be valid JSON.
func (c *testClient) sendRaw(line string) map[string]any {
	c.t.Helper()
	_, err := c.conn.Write([]byte(line + "\n"))
	require.NoError(c.t, err)
	return c.readResponse()
}

func (c *testClient) readResponse() map[string]any {
	c.t.Helper()
	require.NoError(c.t, c.conn.SetReadDeadline(time.Now().Add(10*time.Second)))

	line, err := c.r.ReadBytes('\n')
	require.NoError(c.t, err)

	var resp map[string]any
	require.NoError(c.t, json.Unmarshal(line, &resp))
	return resp
}

func resultOf(t *testing.T, resp map[string]any) map[string]any {
	t.Helper()
	result, ok := resp["result"].(map[string]any)
	require.True(t, ok, "response has no result object: %v", resp)
	return result
}

func errorCode(t *testing.T, resp map[string]any) int {
	t.Helper()
	errObj, ok := resp["error"].(map[string]any)
	require.True(t, ok, "response has no error object: %v", resp)
	code, ok := errObj["code"].(float64)
	require.True(t, ok, "error has no numeric code: %v", errObj)
	return int(code)
}

func errorMessage(t *testing.T, resp map[string]any) string {
	t.Helper()
	errObj, ok := resp["error"].(map[string]any)
	require.True(t, ok, "response has no error object: %v", resp)
	msg, _ := errObj["message"].(string)
	return msg
}

func TestPing(t *testing.T) {
	socketPath := startServer(t, nil)
	client := dialServer(t, socketPath)

	resp := client.call(1, "ping", nil)
	result := resultOf(t, resp)
	assert.Equal(t, "ok", result["status"])
	assert.Equal(t, float64(1), resp["id"])
}

func TestMultipleRequestsPerConnection(t *testing.T) {
	dir, _, _ := writeFixtures(t)
	socketPath := startServer(t, nil)
	client := dialServer(t, socketPath)

	first := client.call(1, "ping", nil)
	assert.Equal(t, float64(1), first["id"])

	second := client.call(2, "analyze", map[string]any{"paths": []string{dir}})
	assert.Equal(t, float64(2), second["id"])
	assert.NotNil(t, second["result"])

	third := client.call(3, "ping", nil)
	assert.Equal(t, float64(3), third["id"])
}

func TestAnalyzeFindsClones(t *testing.T) {
	dir, _, _ := writeFixtures(t)
	socketPath := startServer(t, nil)
	client := dialServer(t, socketPath)

	resp := client.call(1, "analyze", map[string]any{"paths": []string{dir}})
	result := resultOf(t, resp)

	summary, ok := result["summary"].(map[string]any)
	require.True(t, ok, "result has no summary: %v", result)
	assert.Equal(t, float64(2), summary["files_analyzed"])
	assert.GreaterOrEqual(t, summary["clone_pairs_found"], float64(1))

	clones, ok := result["clones"].([]any)
	require.True(t, ok, "result has no clones list: %v", result)
	assert.NotEmpty(t, clones)
}

func TestAnalyzeEmptyDir(t *testing.T) {
	socketPath := startServer(t, nil)
	client := dialServer(t, socketPath)

	resp := client.call(1, "analyze", map[string]any{"paths": []string{t.TempDir()}})
	result := resultOf(t, resp)

	summary, ok := result["summary"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(0), summary["files_analyzed"])
	assert.Equal(t, float64(0), summary["clone_pairs_found"])
}

func TestAnalyzeMissingPaths(t *testing.T) {
	socketPath := startServer(t, nil)
	client := dialServer(t, socketPath)

	resp := client.call(1, "analyze", map[string]any{})
	assert.Equal(t, codeInvalidParams, errorCode(t, resp))
	assert.Contains(t, errorMessage(t, resp), "paths")
}

func TestAnalyzeMinTokensOverride(t *testing.T) {
	dir, _, _ := writeFixtures(t)
	socketPath := startServer(t, nil)
	client := dialServer(t, socketPath)

	// A minimum no real fixture can reach proves the override is applied.
	resp := client.call(1, "analyze", map[string]any{
		"paths":      []string{dir},
		"min_tokens": 100000,
	})
	result := resultOf(t, resp)

	summary, ok := result["summary"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(0), summary["clone_pairs_found"])
}

func TestCompare(t *testing.T) {
	_, fileA, fileB := writeFixtures(t)
	socketPath := startServer(t, nil)
	client := dialServer(t, socketPath)

	resp := client.call("cmp-1", "compare", map[string]any{
		"file_a": fileA,
		"file_b": fileB,
	})
	result := resultOf(t, resp)
	assert.Equal(t, "cmp-1", resp["id"])

	summary, ok := result["summary"].(map[string]any)
	require.True(t, ok)
	assert.GreaterOrEqual(t, summary["clone_pairs_found"], float64(1))
}

func TestCompareMissingParams(t *testing.T) {
	_, fileA, _ := writeFixtures(t)
	socketPath := startServer(t, nil)
	client := dialServer(t, socketPath)

	resp := client.call(1, "compare", map[string]any{"file_a": fileA})
	assert.Equal(t, codeInvalidParams, errorCode(t, resp))
}

func TestCompareUnsupportedFile(t *testing.T) {
	dir, fileA, _ := writeFixtures(t)
	notes := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(notes, []byte("plain text"), 0o644))

	socketPath := startServer(t, nil)
	client := dialServer(t, socketPath)

	resp := client.call(1, "compare", map[string]any{
		"file_a": fileA,
		"file_b": notes,
	})
	assert.Equal(t, codeInvalidParams, errorCode(t, resp))
	assert.Contains(t, errorMessage(t, resp), "not a supported source file")
}

func TestFilesMethod(t *testing.T) {
	dir, _, _ := writeFixtures(t)
	socketPath := startServer(t, nil)
	client := dialServer(t, socketPath)

	resp := client.call(1, "files", map[string]any{"paths": []string{dir}})
	result := resultOf(t, resp)
	assert.Equal(t, float64(2), result["count"])

	files, ok := result["files"].([]any)
	require.True(t, ok)
	require.Len(t, files, 2)

	names := make([]string, 0, len(files))
	for _, f := range files {
		entry, ok := f.(map[string]any)
		require.True(t, ok)
		names = append(names, entry["name"].(string))
		assert.Greater(t, entry["size"], float64(0))
	}
	assert.ElementsMatch(t, []string{"alpha.py", "beta.py"}, names)
}

func TestHotspotsMethod(t *testing.T) {
	dir, _, _ := writeFixtures(t)
	socketPath := startServer(t, nil)
	client := dialServer(t, socketPath)

	resp := client.call(1, "hotspots", map[string]any{
		"paths": []string{dir},
		"limit": 1,
	})
	result := resultOf(t, resp)

	hotspots, ok := result["hotspots"].([]any)
	require.True(t, ok)
	assert.Len(t, hotspots, 1)
	assert.Equal(t, float64(1), result["count"])
}

func TestFileClonesMethod(t *testing.T) {
	dir, fileA, _ := writeFixtures(t)
	socketPath := startServer(t, nil)
	client := dialServer(t, socketPath)

	resp := client.call(1, "file_clones", map[string]any{
		"paths": []string{dir},
		"file":  filepath.Base(fileA),
	})
	result := resultOf(t, resp)
	assert.Equal(t, "alpha.py", result["file"])
	assert.GreaterOrEqual(t, result["count"], float64(1))

	clones, ok := result["clones"].([]any)
	require.True(t, ok)
	require.NotEmpty(t, clones)

	entry, ok := clones[0].(map[string]any)
	require.True(t, ok)
	locations, ok := entry["locations"].([]any)
	require.True(t, ok)

	var touchesFile bool
	for _, l := range locations {
		loc, ok := l.(map[string]any)
		require.True(t, ok)
		if strings.HasSuffix(loc["file"].(string), "alpha.py") {
			touchesFile = true
		}
	}
	assert.True(t, touchesFile, "reported clone does not touch alpha.py")
}

func TestMethodNotFound(t *testing.T) {
	socketPath := startServer(t, nil)
	client := dialServer(t, socketPath)

	resp := client.call(1, "bogus", nil)
	assert.Equal(t, codeMethodNotFound, errorCode(t, resp))
	assert.Contains(t, errorMessage(t, resp), "bogus")
}

// TestProtocolErrors exercises decode and dispatch directly, without a
// socket in the way.
func TestProtocolErrors(t *testing.T) {
	s := New(nil)

	tests := []struct {
		name string
		line string
		code int
	}{
		{"malformed json", `{"id": 1,`, codeParse},
		{"non-object request", `42`, codeInvalidRequest},
		{"missing method", `{"id": 1}`, codeInvalidRequest},
		{"unknown method", `{"id": 1, "method": "nope"}`, codeMethodNotFound},
		{"empty paths", `{"id": 1, "method": "analyze", "params": {"paths": []}}`, codeInvalidParams},
		{"params wrong type", `{"id": 1, "method": "analyze", "params": "zzz"}`, codeInvalidParams},
		{"compare without files", `{"id": 1, "method": "compare", "params": {}}`, codeInvalidParams},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, stop := s.handleLine(context.Background(), []byte(tt.line))
			assert.False(t, stop)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
			assert.Nil(t, resp.Result)
		})
	}
}

func TestRequestIDRoundTrip(t *testing.T) {
	socketPath := startServer(t, nil)
	client := dialServer(t, socketPath)

	numeric := client.call(7, "ping", nil)
	assert.Equal(t, float64(7), numeric["id"])

	str := client.call("req-abc", "ping", nil)
	assert.Equal(t, "req-abc", str["id"])

	// Parse failures have no id to echo, so it comes back null.
	broken := client.sendRaw(`{"id": 9,`)
	assert.Nil(t, broken["id"])
	assert.Equal(t, codeParse, errorCode(t, broken))
}

func TestShutdownMethod(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "mimic.sock")

	errCh := make(chan error, 1)
	go func() {
		errCh <- New(nil).Serve(context.Background(), socketPath)
	}()

	client := dialServer(t, socketPath)
	resp := client.call(1, "shutdown", nil)
	result := resultOf(t, resp)
	assert.Equal(t, "stopping", result["status"])

	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop after shutdown request")
	}

	_, err := os.Stat(socketPath)
	assert.True(t, os.IsNotExist(err), "socket file was not removed")
}

func TestContextCancelStopsServer(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "mimic.sock")

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- New(nil).Serve(ctx, socketPath)
	}()

	// Probe with a real request so we know the server is accepting before
	// the cancel goes out.
	client := dialServer(t, socketPath)
	client.call(1, "ping", nil)

	cancel()
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop after context cancel")
	}

	_, err := os.Stat(socketPath)
	assert.True(t, os.IsNotExist(err), "socket file was not removed")
}

func TestOversizedLineRejected(t *testing.T) {
	socketPath := startServer(t, nil)
	client := dialServer(t, socketPath)

	resp := client.sendRaw(strings.Repeat("x", maxLineBytes+1))
	assert.Equal(t, codeParse, errorCode(t, resp))
	assert.Contains(t, errorMessage(t, resp), "line limit")

	// The connection is dropped after an oversized line.
	_, err := client.r.ReadBytes('\n')
	assert.Error(t, err)
}

func TestStaleSocketReplaced(t *testing.T) {
	dir := t.TempDir()
	socketPath := filepath.Join(dir, "mimic.sock")
	require.NoError(t, os.WriteFile(socketPath, []byte("stale"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- New(nil).Serve(ctx, socketPath)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-errCh:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("server did not stop after cancel")
		}
	})

	client := dialServer(t, socketPath)
	result := resultOf(t, client.call(1, "ping", nil))
	assert.Equal(t, "ok", result["status"])
}

func TestDetectorForSharedInstance(t *testing.T) {
	s := New(nil)

	shared := s.detectorFor(detectorParams{})
	assert.Same(t, s.detector, shared)

	custom := s.detectorFor(detectorParams{MinTokens: 50})
	assert.NotSame(t, s.detector, custom)

	enabled := true
	custom = s.detectorFor(detectorParams{DetectType3: &enabled})
	assert.NotSame(t, s.detector, custom)
}

func TestConcurrentConnections(t *testing.T) {
	dir, _, _ := writeFixtures(t)
	socketPath := startServer(t, nil)

	clients := []*testClient{
		dialServer(t, socketPath),
		dialServer(t, socketPath),
		dialServer(t, socketPath),
	}

	// Fire every request before reading any response, so the server is
	// working all three connections at once.
	for i, client := range clients {
		req, err := json.Marshal(map[string]any{
			"id":     i + 1,
			"method": "analyze",
			"params": map[string]any{"paths": []string{dir}},
		})
		require.NoError(t, err)
		_, err = client.conn.Write(append(req, '\n'))
		require.NoError(t, err)
	}

	for i, client := range clients {
		resp := client.readResponse()
		assert.Equal(t, float64(i+1), resp["id"])
		assert.NotNil(t, resp["result"])
	}
}
