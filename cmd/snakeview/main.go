// Command snakeview is a terminal client for a Grid Snake location. It draws
// every frame the server broadcasts and, when --player is set, steers that
// player with the arrow keys or WASD. x gives up, q quits.
package main

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/gdamore/tcell/v2"
	gorillaws "github.com/gorilla/websocket"
	"github.com/urfave/cli/v3"

	"github.com/wricardo/gridsnake/game/engine"
	"github.com/wricardo/gridsnake/game/service"
	"github.com/wricardo/gridsnake/transport/websocket"
)

var key2Action = map[tcell.Key]engine.Action{
	tcell.KeyUp:    engine.ActionUp,
	tcell.KeyRight: engine.ActionRight,
	tcell.KeyDown:  engine.ActionDown,
	tcell.KeyLeft:  engine.ActionLeft,
}

var rune2Action = map[rune]engine.Action{
	'w': engine.ActionUp,
	'd': engine.ActionRight,
	's': engine.ActionDown,
	'a': engine.ActionLeft,
	'x': engine.ActionCancel,
}

// keyAction maps a key press to an action. quit is set for q, Esc and Ctrl-C.
func keyAction(ev *tcell.EventKey) (action engine.Action, ok bool, quit bool) {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return engine.ActionCancel, false, true
	case tcell.KeyRune:
		r := ev.Rune()
		if r >= 'A' && r <= 'Z' {
			r += 'a' - 'A'
		}
		if r == 'q' {
			return engine.ActionCancel, false, true
		}
		action, ok = rune2Action[r]
		return action, ok, false
	}
	action, ok = key2Action[ev.Key()]
	return action, ok, false
}

// view is what the screen shows
type view struct {
	location string
	board    string
	rankings []service.RankEntry
	status   string
	over     bool
}

// apply folds a server message into the view
func (v *view) apply(msg *websocket.Message) {
	switch msg.Event {
	case websocket.EventFrame:
		if msg.Frame == nil {
			return
		}
		v.over = false
		v.board = msg.Frame.Board
		v.rankings = msg.Frame.Rankings
		v.status = fmt.Sprintf("tick %d", msg.Frame.Tick)
	case websocket.EventSummary:
		if msg.Summary == nil {
			return
		}
		v.over = true
		v.board = msg.Summary.Board
		v.rankings = msg.Summary.Rankings
		v.status = "GAME OVER, lasted the longest: " + strings.Join(msg.Summary.OutcomeNames, ", ")
	case websocket.EventQueued:
		if !msg.Queued {
			v.status = "input dropped"
		}
	case websocket.EventError:
		v.status = "error: " + msg.Error
	}
}

// lines renders the view as text rows
func (v *view) lines() []string {
	out := []string{fmt.Sprintf("Grid Snake @ %s | %s", v.location, v.status)}
	if v.board == "" {
		return append(out, "", "waiting for a round...")
	}
	out = append(out, strings.Split(v.board, "\n")...)
	out = append(out, "")
	for _, e := range v.rankings {
		name := e.Name
		if name == "" {
			name = strconv.FormatUint(e.ID, 10)
		}
		state := "alive"
		if !e.Alive {
			state = "dead"
		}
		out = append(out, fmt.Sprintf("%d. %s  %d pts  %d kills  %s", e.Place, name, e.Score, e.Kills, state))
	}
	return out
}

func drawText(s tcell.Screen, x, y int, style tcell.Style, text string) {
	for i, r := range []rune(text) {
		s.SetContent(x+i, y, r, nil, style)
	}
}

func (v *view) draw(s tcell.Screen) {
	s.Clear()
	headerStyle := tcell.StyleDefault.Foreground(tcell.ColorGreen)
	style := tcell.StyleDefault
	for row, line := range v.lines() {
		if row == 0 {
			drawText(s, 0, row, headerStyle, line)
			continue
		}
		drawText(s, 0, row, style, line)
	}
	s.Show()
}

// wsURL adds the location query to a /ws endpoint
func wsURL(base, location string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("location", location)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func run(ctx context.Context, cmd *cli.Command) error {
	location := cmd.String("location")
	endpoint, err := wsURL(cmd.String("url"), location)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}

	var player string
	if cmd.IsSet("player") {
		id, err := strconv.ParseUint(cmd.String("player"), 10, 64)
		if err != nil {
			return fmt.Errorf("invalid player id %q", cmd.String("player"))
		}
		player = strconv.FormatUint(id, 10)
	}

	conn, _, err := gorillaws.DefaultDialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", endpoint, err)
	}
	defer conn.Close()

	s, err := tcell.NewScreen()
	if err != nil {
		return err
	}
	if err := s.Init(); err != nil {
		return err
	}
	defer s.Fini()
	s.DisableMouse()

	messages := make(chan *websocket.Message)
	go func() {
		defer close(messages)
		for {
			var msg websocket.Message
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			messages <- &msg
		}
	}()

	events := make(chan tcell.Event)
	quitEvents := make(chan struct{})
	go s.ChannelEvents(events, quitEvents)
	defer close(quitEvents)

	v := &view{location: location, status: "connected"}
	v.draw(s)

	for {
		select {
		case msg, ok := <-messages:
			if !ok {
				return fmt.Errorf("connection to %s closed", endpoint)
			}
			v.apply(msg)
			v.draw(s)

		case ev := <-events:
			switch ev := ev.(type) {
			case *tcell.EventResize:
				s.Sync()
			case *tcell.EventKey:
				action, ok, quit := keyAction(ev)
				if quit {
					return nil
				}
				if !ok || player == "" {
					continue
				}
				in := websocket.InputMessage{PlayerID: player, Action: action.String()}
				if err := conn.WriteJSON(in); err != nil {
					return fmt.Errorf("failed to send input: %w", err)
				}
			}
		}
	}
}

func main() {
	cmd := &cli.Command{
		Name:  "snakeview",
		Usage: "Watch and play Grid Snake rounds in the terminal",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "url",
				Value:   "ws://localhost:8080/ws",
				Usage:   "WebSocket endpoint of the server",
				Sources: cli.EnvVars("SNAKE_URL"),
			},
			&cli.StringFlag{
				Name:     "location",
				Usage:    "Location to watch",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "player",
				Usage: "Player id to steer (watch only when unset)",
			},
		},
		Action: run,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
