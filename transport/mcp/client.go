package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cast"
	"github.com/wricardo/mcp-training/daifugo/game/card"
	"github.com/wricardo/mcp-training/daifugo/game/engine"
	"github.com/wricardo/mcp-training/daifugo/game/service"
)

// Client is a thin MCP client that proxies to the local REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Daifugo Client",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Daifugo Client - MCP Interface

This is a thin client that proxies all requests to the local session API.
Every session is one seat at a Daifugo table on the game server. The server
deals, validates plays and decides who wins; this client only shows state
and sends what you ask.

TYPICAL FLOW:
1. list_rooms / create_room
2. connect (room, player) -> session_id
3. join, then start_game once two or more players are seated
4. On your turn: toggle_card for each card, then submit_cards; or pass
5. session_state whenever you want to see the table
6. leave when done

Cards are written as number + suit letter: 3S, 10H, 1D (ace), 2C. Jokers are JOKER1 and JOKER2; a bare JOKER picks the one you hold.`),
	)

	c.registerTools()
}

func sessionTool(name, description string, extra map[string]interface{}, required ...string) mcp.Tool {
	props := map[string]interface{}{
		"session_id": map[string]interface{}{
			"type":        "string",
			"description": "Session ID returned by connect",
		},
	}
	for k, v := range extra {
		props[k] = v
	}
	return mcp.Tool{
		Name:        name,
		Description: description,
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: props,
			Required:   append([]string{"session_id"}, required...),
		},
	}
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	// Rooms
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_rooms",
		Description: "List rooms on the game server",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListRooms)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_room",
		Description: "Create a room on the game server",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"room": map[string]interface{}{
					"type":        "string",
					"description": "Room name",
				},
			},
			Required: []string{"room"},
		},
	}, c.handleCreateRoom)

	// Session management
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "connect",
		Description: "Open a connection to a room as a player. Returns the session ID.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"room": map[string]interface{}{
					"type":        "string",
					"description": "Room name",
				},
				"player": map[string]interface{}{
					"type":        "string",
					"description": "Player name, unique within the room",
				},
			},
			Required: []string{"room", "player"},
		},
	}, c.handleConnect)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List open sessions",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListSessions)

	c.mcpServer.AddTool(sessionTool("session_state", "Show the table: phase, players, turn, field, constraints, your hand and selection", nil), c.handleSessionState)
	c.mcpServer.AddTool(sessionTool("leave", "Leave the room and close the session", nil), c.handleLeave)

	// Intents
	c.mcpServer.AddTool(sessionTool("join", "Ask the server to seat your player", nil), c.handleIntent("join"))
	c.mcpServer.AddTool(sessionTool("start_game", "Ask the server to deal", nil), c.handleIntent("start"))
	c.mcpServer.AddTool(sessionTool("submit_cards", "Submit the selected cards. The server decides whether the play is legal.", map[string]interface{}{
		"intent": map[string]interface{}{
			"type":        "string",
			"description": "Brief explanation of why you are playing these cards",
		},
	}), c.handleIntent("submit"))
	c.mcpServer.AddTool(sessionTool("pass", "Pass your turn", nil), c.handleIntent("pass"))

	// Selection
	c.mcpServer.AddTool(sessionTool("toggle_card", "Select or unselect a card from your hand", map[string]interface{}{
		"card": map[string]interface{}{
			"type":        "string",
			"description": "Card such as 3S, 10H, 1D, JOKER or JOKER2",
		},
	}, "card"), c.handleToggleCard)
	c.mcpServer.AddTool(sessionTool("clear_selection", "Unselect every card", nil), c.handleClearSelection)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
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

func arguments(request mcp.CallToolRequest) map[string]interface{} {
	args, _ := request.Params.Arguments.(map[string]interface{})
	if args == nil {
		return map[string]interface{}{}
	}
	return args
}

func sessionPath(args map[string]interface{}, suffix string) (string, error) {
	id := cast.ToString(args["session_id"])
	if id == "" {
		return "", fmt.Errorf("session_id is required")
	}
	return "/api/sessions/" + url.PathEscape(id) + suffix, nil
}

// Tool handlers

func (c *Client) handleListRooms(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count int      `json:"count"`
		Rooms []string `json:"rooms"`
	}
	if err := c.apiCall(ctx, "GET", "/api/rooms", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if response.Count == 0 {
		return mcp.NewToolResultText("No rooms yet. Use create_room to make one."), nil
	}
	result := fmt.Sprintf("Rooms (%d):\n", response.Count)
	for _, r := range response.Rooms {
		result += fmt.Sprintf("- %s\n", r)
	}
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleCreateRoom(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	room := cast.ToString(arguments(request)["room"])
	if room == "" {
		return mcp.NewToolResultError("room is required"), nil
	}

	if err := c.apiCall(ctx, "POST", "/api/rooms/"+url.PathEscape(room), nil, nil); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Created room: %s", room)), nil
}

func (c *Client) handleConnect(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	body := map[string]string{
		"room":   cast.ToString(args["room"]),
		"player": cast.ToString(args["player"]),
	}

	var info service.SessionInfo
	if err := c.apiCall(ctx, "POST", "/api/sessions", body, &info); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Connected session: %s\nRoom: %s\nPlayer: %s\n\nNext: join to take a seat.", info.ID, info.Room, info.Player)
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count    int                   `json:"count"`
		Sessions []service.SessionInfo `json:"sessions"`
	}
	if err := c.apiCall(ctx, "GET", "/api/sessions", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Open Sessions (%d):\n\n", response.Count)
	for _, s := range response.Sessions {
		turn := ""
		if s.MyTurn {
			turn = " [your turn]"
		}
		result += fmt.Sprintf("- %s (Room: %s, Player: %s, Created: %s)%s\n",
			s.ID, s.Room, s.Player, s.CreatedAt.Format("15:04:05"), turn)
	}
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleSessionState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := sessionPath(arguments(request), "")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var info service.SessionInfo
	if err := c.apiCall(ctx, "GET", path, nil, &info); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatSessionInfo(&info)), nil
}

func (c *Client) handleLeave(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := sessionPath(arguments(request), "")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var response struct {
		Message string `json:"message"`
	}
	if err := c.apiCall(ctx, "DELETE", path, nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(response.Message), nil
}

func (c *Client) handleIntent(action string) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		// The optional intent argument is only there for the caller's own reasoning.
		path, err := sessionPath(arguments(request), "/"+action)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		var result service.ActionResult
		if err := c.apiCall(ctx, "POST", path, nil, &result); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(formatActionResult(&result)), nil
	}
}

func (c *Client) handleToggleCard(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	path, err := sessionPath(args, "/select")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	body := map[string]string{"card": cast.ToString(args["card"])}
	var result service.SelectionResult
	if err := c.apiCall(ctx, "POST", path, body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText("Selected: " + formatCards(result.Selected)), nil
}

func (c *Client) handleClearSelection(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := sessionPath(arguments(request), "/select")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var result service.SelectionResult
	if err := c.apiCall(ctx, "DELETE", path, nil, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText("Selection cleared"), nil
}

// Formatting helpers

func formatCards(cards []card.Card) string {
	if len(cards) == 0 {
		return "(none)"
	}
	parts := make([]string, len(cards))
	for i, c := range cards {
		parts[i] = c.String()
	}
	return strings.Join(parts, " ")
}

func formatSessionInfo(info *service.SessionInfo) string {
	header := fmt.Sprintf("Session %s (Room: %s, Player: %s)\n", info.ID, info.Room, info.Player)
	if info.Closed {
		header += "Connection closed\n"
	}
	if info.State == nil {
		return header
	}
	return header + "\n" + formatState(info.State, info.Player)
}

func formatState(state *engine.State, me string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Phase: %s\n", state.Phase)
	if len(state.Constraints) > 0 {
		modes := make([]string, len(state.Constraints))
		for i, c := range state.Constraints {
			modes[i] = string(c)
		}
		fmt.Fprintf(&b, "Constraints: %s\n", strings.Join(modes, ", "))
	}

	current, _ := state.CurrentPlayerName()
	b.WriteString("Players:\n")
	for _, p := range state.Players {
		marker := "  "
		if p.Name == current {
			marker = "> "
		}
		line := fmt.Sprintf("%s%s (%d cards)", marker, p.Name, p.HandCount)
		if p.Role != "" {
			line += " " + string(p.Role)
		}
		if p.Name == me {
			line += " [you]"
		}
		b.WriteString(line + "\n")
	}

	fmt.Fprintf(&b, "Field: %s\n", formatCards(state.FieldTop))
	fmt.Fprintf(&b, "Hand: %s\n", formatCards(state.Hand))
	fmt.Fprintf(&b, "Selected: %s\n", formatCards(state.Selected.Cards()))

	if current != "" && current == me {
		b.WriteString("\nIt is your turn.\n")
	}

	if standings, ok := state.Standings(); ok {
		b.WriteString("\nFinal standings:\n")
		for i, name := range standings {
			fmt.Fprintf(&b, "%d. %s\n", i+1, name)
		}
	}

	if narration := state.Narration(); len(narration) > 0 {
		b.WriteString("\nRecent messages:\n")
		for i, line := range narration {
			if i == 5 {
				break
			}
			fmt.Fprintf(&b, "- %s\n", line)
		}
	}

	return b.String()
}

func formatActionResult(result *service.ActionResult) string {
	msg := fmt.Sprintf("Sent %s", result.Sent)
	if len(result.Cards) > 0 {
		msg += " " + formatCards(result.Cards)
	}
	return msg + "\nThe server will answer with the updated table; check session_state."
}
