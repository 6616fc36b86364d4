package emailsvc

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/mail"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/summercamps/core"
)

func newMessage() *core.EmailMessage {
	return &core.EmailMessage{
		To:      []mail.Address{{Name: "Jane Doe", Address: "jane@example.com"}},
		Subject: "Booking confirmed",
		BodyStr: "See you at Lakeside Adventure!",
	}
}

func TestConsoleService(t *testing.T) {
	conf := core.NewTestConfig()
	out := new(bytes.Buffer)
	svc := NewConsoleService(conf, out, core.NopLogger())
	svc.synchronous = true

	msg := newMessage()
	require.NoError(t, msg.Attach(strings.NewReader("a,b\n1,2\n"), "camps.csv", "text/csv"))
	svc.SendMessages(msg, &core.EmailMessage{Subject: "no recipients", BodyStr: "x"})

	sent := svc.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "Booking confirmed", sent[0].Subject)

	text := out.String()
	assert.Contains(t, text, "Subject: [Summer Camps] Booking confirmed")
	assert.Contains(t, text, `To: "Jane Doe" <jane@example.com>`)
	assert.Contains(t, text, "multipart/mixed")
	assert.Contains(t, text, "See you at Lakeside Adventure!")
	assert.Contains(t, text, "filename=camps.csv")

	svc.Reset()
	assert.Empty(t, svc.Sent())
}

func TestConsoleServiceMock(t *testing.T) {
	svc := NewConsoleServiceMock(core.NewTestConfig())
	svc.SendMessages(newMessage(), newMessage())
	assert.Len(t, svc.Sent(), 2)
}

func TestSendgridService(t *testing.T) {
	var (
		gotPath string
		gotAuth string
		gotBody map[string]interface{}
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotBody)
		if strings.Contains(string(body), "reject@example.com") {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	conf := core.NewTestConfig()
	conf.SendgridApiKey = "SG.key"
	svc := NewSendgridService(conf, core.NopLogger())
	svc.host = srv.URL

	msg := newMessage()
	require.NoError(t, msg.Render())
	require.NoError(t, svc.send(*msg))

	assert.Equal(t, sendgridEndpoint, gotPath)
	assert.Equal(t, "Bearer SG.key", gotAuth)
	assert.Equal(t, "noreply@localhost", gotBody["from"].(map[string]interface{})["email"])
	personalizations := gotBody["personalizations"].([]interface{})
	require.Len(t, personalizations, 1)
	assert.Equal(t, "[Summer Camps] Booking confirmed", personalizations[0].(map[string]interface{})["subject"])
	assert.Len(t, gotBody["content"], 1, "no html part without html content")

	msg.To = []mail.Address{{Address: "reject@example.com"}}
	assert.Error(t, svc.send(*msg))
}
