package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cast"

	"github.com/wricardo/gridsnake/game/engine"
	"github.com/wricardo/gridsnake/game/service"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Grid Snake",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Grid Snake - MCP Interface

This is a thin client that proxies all requests to the REST API server.

Rounds run on their own clock, about one tick per second, whether or not anyone
sends input. Every location (a chat channel, a lobby) runs at most one round.

AVAILABLE TOOLS:
- start_round: Start a snake (2-5 players) or solo round at a location
- send_input: Steer a player (up/right/down/left) or cancel (give up)
- get_board: Current board and ranking of a running round
- rankings: Current ranking of a running round
- list_sessions: List running rounds
- list_results: List finished rounds, newest first
- game_instructions: Rules and controls`),
	)

	c.registerTools()
}

func (c *Client) registerTools() {
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "start_round",
		Description: "Start a new round at a location",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"location": map[string]interface{}{
					"type":        "string",
					"description": "Where the round runs (channel or lobby id)",
				},
				"mode": map[string]interface{}{
					"type":        "string",
					"enum":        []string{engine.ModeSnake, engine.ModeSolo},
					"description": "snake needs 2-5 players, solo plays the requester alone",
				},
				"requester": map[string]interface{}{
					"type":        "string",
					"description": "Id of the user starting the round",
				},
				"players": map[string]interface{}{
					"type":        "array",
					"items":       map[string]interface{}{"type": "string"},
					"description": "Player ids in roster order (snake mode)",
				},
			},
			Required: []string{"location", "mode", "requester"},
		},
	}, c.handleStartRound)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "send_input",
		Description: "Queue a direction or a cancel for a player; it applies on the next tick",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"location": map[string]interface{}{
					"type":        "string",
					"description": "Location of the running round",
				},
				"player_id": map[string]interface{}{
					"type":        "string",
					"description": "Id of the player to steer",
				},
				"action": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"up", "right", "down", "left", "cancel"},
					"description": "New heading, or cancel to give up",
				},
			},
			Required: []string{"location", "player_id", "action"},
		},
	}, c.handleSendInput)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_board",
		Description: "Get the current board and ranking of a running round",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"location": map[string]interface{}{
					"type":        "string",
					"description": "Location of the running round",
				},
			},
			Required: []string{"location"},
		},
	}, c.handleGetBoard)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "rankings",
		Description: "Get the current ranking of a running round",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"location": map[string]interface{}{
					"type":        "string",
					"description": "Location of the running round",
				},
			},
			Required: []string{"location"},
		},
	}, c.handleRankings)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List running rounds",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListSessions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_results",
		Description: "List finished rounds, newest first",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of results",
				},
			},
		},
	}, c.handleListResults)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_instructions",
		Description: "Get the game rules and controls",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleGameInstructions)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// ServeHTTP answers single JSON-RPC messages posted to the /mcp endpoint
func (c *Client) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read request", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	response := c.mcpServer.HandleMessage(r.Context(), body)

	w.Header().Set("Content-Type", "application/json")
	responseData, err := json.Marshal(response)
	if err != nil {
		http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
		return
	}
	w.Write(responseData)
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

func locationPath(location string, suffix string) string {
	return "/api/sessions/" + url.PathEscape(location) + suffix
}

// Tool handlers

func (c *Client) handleStartRound(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	location := cast.ToString(args["location"])
	mode := cast.ToString(args["mode"])

	requester, err := cast.ToUint64E(args["requester"])
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid requester: %v", args["requester"])), nil
	}

	req := service.StartRequest{
		Location:  location,
		Mode:      mode,
		Requester: requester,
	}
	for _, raw := range cast.ToSlice(args["players"]) {
		id, err := cast.ToUint64E(raw)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid player id: %v", raw)), nil
		}
		req.Mentions = append(req.Mentions, service.Mention{ID: id})
	}

	var info service.SessionInfo
	if err := c.apiCall(ctx, http.MethodPost, "/api/sessions", req, &info); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Started round %s at %s (mode: %s)\n\n%s", info.Round, info.Location, info.Mode, formatSessionInfo(&info))
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleSendInput(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	location := cast.ToString(args["location"])

	playerID, err := cast.ToUint64E(args["player_id"])
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid player_id: %v", args["player_id"])), nil
	}

	action, ok := engine.ParseAction(cast.ToString(args["action"]))
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("unknown action: %v", args["action"])), nil
	}

	var response struct {
		Queued bool `json:"queued"`
	}
	in := service.Input{PlayerID: playerID, Action: action}
	if err := c.apiCall(ctx, http.MethodPost, locationPath(location, "/input"), in, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if !response.Queued {
		return mcp.NewToolResultText(fmt.Sprintf("Input dropped: no round accepting input at %s", location)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Queued %s for player %d at %s; it applies on the next tick", action, playerID, location)), nil
}

func (c *Client) handleGetBoard(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	location := cast.ToString(request.GetArguments()["location"])

	var info service.SessionInfo
	if err := c.apiCall(ctx, http.MethodGet, locationPath(location, ""), nil, &info); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSessionInfo(&info)), nil
}

func (c *Client) handleRankings(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	location := cast.ToString(request.GetArguments()["location"])

	var response struct {
		Location string              `json:"location"`
		Rankings []service.RankEntry `json:"rankings"`
	}
	if err := c.apiCall(ctx, http.MethodGet, locationPath(location, "/rankings"), nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatRankings(response.Rankings)), nil
}

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count    int                    `json:"count"`
		Sessions []*service.SessionInfo `json:"sessions"`
	}

	if err := c.apiCall(ctx, http.MethodGet, "/api/sessions", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Running Rounds (%d):\n\n", response.Count)
	for _, s := range response.Sessions {
		tick := 0
		if s.State != nil {
			tick = s.State.Tick
		}
		result += fmt.Sprintf("- %s (Round: %s, Mode: %s, Players: %d, Tick: %d, Started: %s)\n",
			s.Location, s.Round, s.Mode, len(s.Players), tick, s.StartedAt.Format("15:04:05"))
	}

	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleListResults(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := "/api/results"
	if limit := cast.ToInt(request.GetArguments()["limit"]); limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}

	var response struct {
		Count   int                `json:"count"`
		Results []*service.Summary `json:"results"`
	}
	if err := c.apiCall(ctx, http.MethodGet, path, nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Finished Rounds (%d):\n\n", response.Count)
	for _, s := range response.Results {
		result += formatSummaryLine(s)
	}
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleGameInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Help string `json:"help"`
	}
	if err := c.apiCall(ctx, http.MethodGet, "/api/help", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	instructions := fmt.Sprintf(`Grid Snake - Complete Instructions

%s

BOARD:
• %dx%d cells that wrap around on every edge
• %s empty, %s fruit, %s the head of a snake, other glyphs are snake bodies (%s in roster order)

RULES:
• Every tick each living snake moves one cell in its heading, in roster order
• Eating fruit grows the snake by one cell and scores 1 point
• Running into any body dies; the owner of that body earns a kill worth %d points
• Two heads on the same cell both die
• A fruit appears on a random empty cell about %d%% of ticks

CONTROLS (send_input):
• up, right, down, left set the heading for the next tick; the last input before a tick wins
• cancel gives up immediately

VICTORY CONDITIONS:
• snake mode ends when at most one snake is alive; the survivor wins
• solo mode ends when the snake dies
• if the last snakes die together, they all "lasted the longest"`,
		response.Help,
		engine.BoardWidth, engine.BoardHeight,
		engine.EmptyGlyph, engine.FruitGlyph, engine.HeadGlyph,
		strings.Join(engine.PlayerGlyphs[:engine.MaxPlayers], " "),
		engine.PointsPerKill,
		int(engine.FruitChance*100),
	)

	return mcp.NewToolResultText(instructions), nil
}

// Formatting helpers

func formatSessionInfo(info *service.SessionInfo) string {
	var result strings.Builder

	tick := 0
	if info.State != nil {
		tick = info.State.Tick
	}
	result.WriteString(fmt.Sprintf("Location: %s | Round: %s | Mode: %s | Tick: %d\n\n",
		info.Location, info.Round, info.Mode, tick))

	result.WriteString(formatRankings(info.Rankings))

	if info.State != nil {
		result.WriteString("\n```\n")
		result.WriteString(info.State.Board)
		result.WriteString("\n```\n")
	}
	return result.String()
}

func formatRankings(entries []service.RankEntry) string {
	if len(entries) == 0 {
		return "No players\n"
	}

	var result strings.Builder
	result.WriteString("Ranking:\n")
	for _, e := range entries {
		status := "alive"
		if !e.Alive {
			status = "dead"
		}
		name := e.Name
		if name == "" {
			name = strconv.FormatUint(e.ID, 10)
		}
		result.WriteString(fmt.Sprintf("  %d. %s: %d points (%d fruit, %d kills), %s\n",
			e.Place, name, e.Score, e.Fruit, e.Kills, status))
	}
	return result.String()
}

func formatSummaryLine(s *service.Summary) string {
	winners := strings.Join(s.OutcomeNames, ", ")
	if winners == "" {
		winners = "nobody"
	}
	return fmt.Sprintf("- %s at %s (Mode: %s, Ticks: %d, Ended: %s) lasted the longest: %s\n",
		s.ID, s.Location, s.Mode, s.Ticks, s.EndedAt.Format("2006-01-02 15:04:05"), winners)
}
