package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"

	"github.com/nverno/inf-perl/internal/hub"
	"github.com/nverno/inf-perl/internal/session"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// attach joins a live session: stdin lines go in as input, output entries
// stream back. Ctrl-C is forwarded to the REPL rather than killing the
// client; Ctrl-D (stdin EOF) detaches.
func attach(client *apiClient, name string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	conn, _, err := websocket.Dial(ctx, client.wsBase+"/ws?token="+url.QueryEscape(client.token), nil)
	if err != nil {
		return fmt.Errorf("attach %s: %w", name, err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	if err := wsjson.Write(ctx, conn, hub.ClientMessage{Type: "subscribe", Name: name}); err != nil {
		return err
	}

	fmt.Println(dimStyle.Render(fmt.Sprintf("attached to %s  (Ctrl-D detaches, Ctrl-C interrupts the REPL)", name)))

	// Replay what the session already printed, then stream. The sequence
	// guard drops entries the replay and the stream both carry.
	var lastSeq uint64
	var backfill session.OutputSnapshot
	if err := client.do(http.MethodGet, "/api/sessions/"+name+"/output?since=0", nil, &backfill); err == nil {
		for _, e := range backfill.Entries {
			printOutputLine(e.Text, string(e.Class))
			lastSeq = e.Seq
		}
		if backfill.AtPrompt && backfill.Pending != "" {
			fmt.Println(promptStyle.Render(backfill.Pending))
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	defer signal.Stop(sigCh)
	go func() {
		for range sigCh {
			_ = wsjson.Write(ctx, conn, hub.ClientMessage{Type: "key", Name: name, Key: "c-c"})
		}
	}()

	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			msg := hub.ClientMessage{Type: "input", Name: name, Line: scanner.Text()}
			if err := wsjson.Write(ctx, conn, msg); err != nil {
				return
			}
		}
		cancel()
	}()

	lastPending := ""
	for {
		var raw json.RawMessage
		if err := wsjson.Read(ctx, conn, &raw); err != nil {
			if ctx.Err() != nil {
				fmt.Println(dimStyle.Render("detached"))
				return nil
			}
			return err
		}

		var envelope struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(raw, &envelope); err != nil {
			continue
		}

		switch envelope.Type {
		case "output":
			var out hub.OutputMessage
			if err := json.Unmarshal(raw, &out); err != nil || out.Name != name {
				continue
			}
			for _, e := range out.Entries {
				if e.Seq <= lastSeq {
					continue
				}
				printOutputLine(e.Text, e.Class)
				lastSeq = e.Seq
				lastPending = ""
			}
			if out.AtPrompt && out.Pending != "" && out.Pending != lastPending {
				fmt.Println(promptStyle.Render(out.Pending))
				lastPending = out.Pending
			}

		case "session_status":
			var st hub.StatusMessage
			if err := json.Unmarshal(raw, &st); err != nil || st.Name != name {
				continue
			}
			if st.Status == "exited" {
				fmt.Println(dimStyle.Render("session exited"))
				return nil
			}

		case "history_saved":
			var hs hub.HistorySavedMessage
			if err := json.Unmarshal(raw, &hs); err != nil || hs.Name != name {
				continue
			}
			fmt.Println(dimStyle.Render(fmt.Sprintf("history saved: %s (%d lines)", hs.Path, hs.Count)))

		case "error":
			var em hub.ErrorMessage
			if err := json.Unmarshal(raw, &em); err != nil {
				continue
			}
			fmt.Fprintln(os.Stderr, errStyle.Render(em.Message))
		}
	}
}

func printOutputLine(text, class string) {
	switch class {
	case "prompt", "continuation":
		fmt.Println(promptStyle.Render(text))
	case "error":
		fmt.Println(errStyle.Render(text))
	default:
		fmt.Println(text)
	}
}
