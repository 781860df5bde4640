package ipc

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rawReply struct {
	ID     json.RawMessage `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  string          `json:"error"`
}

func serveLines(t *testing.T, f *fixture, lines ...string) map[string]rawReply {
	t.Helper()
	srv := NewServer(f.h, f.metrics, 2)
	var out bytes.Buffer
	err := srv.Serve(context.Background(), strings.NewReader(strings.Join(lines, "\n")+"\n"), &out)
	require.NoError(t, err)

	replies := map[string]rawReply{}
	sc := bufio.NewScanner(&out)
	for sc.Scan() {
		var r rawReply
		require.NoError(t, json.Unmarshal(sc.Bytes(), &r))
		replies[string(r.ID)] = r
	}
	return replies
}

func TestServeDispatchesChannels(t *testing.T) {
	f := newFixture(t)
	dir := t.TempDir()
	src := writeFile(t, dir, "a.txt", "hello")
	require.True(t, f.h.ShredFile(context.Background(), writeFile(t, dir, "b.txt", "x"), 1).Success)

	encReq, err := json.Marshal(map[string]any{
		"id":      "enc",
		"channel": "encrypt-file",
		"args":    []any{src, dir, "pw", "aes-256-gcm"},
	})
	require.NoError(t, err)

	replies := serveLines(t, f,
		`{"id":1,"channel":"get-app-version"}`,
		`{"id":2,"channel":"generate-password","args":[{"length":20,"includeUppercase":true,"includeLowercase":false,"includeNumbers":true,"includeSymbols":false}]}`,
		`{"id":3,"channel":"no-such-channel"}`,
		`{"id":4,"channel":"cancel","args":[99]}`,
		`{"id":5,"channel":"load-all-vaults-metadata","args":[]}`,
		`{"id":6,"channel":"metrics"}`,
		string(encReq),
		``,
	)
	require.Len(t, replies, 7)

	assert.JSONEq(t, `"1.2.3"`, string(replies["1"].Result))

	var password string
	require.NoError(t, json.Unmarshal(replies["2"].Result, &password))
	assert.Len(t, password, 20)
	assert.Equal(t, strings.ToUpper(password), password)

	assert.Contains(t, replies["3"].Error, "unknown channel")
	assert.JSONEq(t, `false`, string(replies["4"].Result))

	var loaded LoadVaultsResponse
	require.NoError(t, json.Unmarshal(replies["5"].Result, &loaded))
	assert.True(t, loaded.Success)
	assert.Empty(t, loaded.Vaults)

	var text string
	require.NoError(t, json.Unmarshal(replies["6"].Result, &text))
	assert.Contains(t, text, "knox_operations_total")

	var enc EncryptFileResponse
	require.NoError(t, json.Unmarshal(replies[`"enc"`].Result, &enc))
	require.True(t, enc.Success, enc.Error)
	assert.FileExists(t, enc.EncryptedFilePath)
}

func TestServeReportsMalformedRequests(t *testing.T) {
	f := newFixture(t)
	replies := serveLines(t, f,
		`{not json`,
		`{"id":7,"channel":"shred-file","args":[42]}`,
	)
	require.Len(t, replies, 2)
	assert.Contains(t, replies[""].Error, "malformed request")
	assert.Contains(t, replies["7"].Error, "argument 0")
}

func TestServeStopsOnCancelledContext(t *testing.T) {
	f := newFixture(t)
	srv := NewServer(f.h, f.metrics, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	err := srv.Serve(ctx, strings.NewReader(`{"id":1,"channel":"get-app-version"}`+"\n"), &out)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, out.String())
}

func TestServeKeepsFalsyResults(t *testing.T) {
	f := newFixture(t)
	f.h.version = ""

	var out bytes.Buffer
	in := strings.NewReader(`{"id":1,"channel":"get-app-version"}` + "\n" + `{"id":2,"channel":"cancel","args":[42]}` + "\n")
	require.NoError(t, NewServer(f.h, f.metrics, 1).Serve(context.Background(), in, &out))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.ElementsMatch(t, []string{`{"id":1,"result":""}`, `{"id":2,"result":false}`}, lines)
}

func TestDispatchErrorOmitsResult(t *testing.T) {
	f := newFixture(t)
	rep := NewServer(f.h, f.metrics, 1).Dispatch(context.Background(), Request{ID: json.RawMessage(`7`), Channel: "nope"})

	data, err := json.Marshal(rep)
	require.NoError(t, err)
	assert.NotContains(t, string(data), `"result"`)
	assert.Contains(t, string(data), `"error"`)
}
