package codec

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/danielpatrickdp/horizon/go-controller/internal/env"
	"github.com/danielpatrickdp/horizon/go-controller/internal/window"
)

// #region methods
// The bridge service exchanges google.protobuf.Struct messages on every method.
const (
	methodReset     = "/horizon.Bridge/Reset"
	methodStep      = "/horizon.Bridge/Step"
	methodGetAction = "/horizon.Bridge/GetAction"
	methodEmbed     = "/horizon.Bridge/Embed"
)
// #endregion methods

// #region types
// stepMsg is the wire shape of a Step response.
type stepMsg struct {
	Obs    env.Observation `json:"obs"`
	Reward float64         `json:"reward"`
	Done   bool            `json:"done"`
	Info   env.Info        `json:"info"`
}

// statesMsg is the windowed observation slice in column form.
type statesMsg struct {
	RGB        [][]byte     `json:"rgb"`
	Width      int          `json:"width"`
	Height     int          `json:"height"`
	Voxels     [][]int64    `json:"voxels"`
	Compass    [][]float32  `json:"compass"`
	GPS        [][3]float32 `json:"gps"`
	Biome      []int64      `json:"biome"`
	PrevAction []env.Action `json:"prev_action"`
}

type actionMsg struct {
	Ranking float32    `json:"ranking"`
	Action  env.Action `json:"action"`
}

type embedMsg struct {
	Embedding []float32 `json:"embedding"`
}
// #endregion types

// #region client-struct
// CodecClient wraps the gRPC connection to the Python bridge that hosts the
// simulator, the goal-conditioned policy and the text encoder.
type CodecClient struct {
	conn   grpc.ClientConnInterface
	closer *grpc.ClientConn
}
// #endregion client-struct

// #region constructor
// NewCodecClient connects to the Python bridge gRPC server.
func NewCodecClient(addr string) (*CodecClient, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("grpc dial %s: %w", addr, err)
	}
	return &CodecClient{conn: conn, closer: conn}, nil
}

// NewCodecClientWithConn creates a CodecClient over an injected connection.
// Used for testing without a real gRPC server.
func NewCodecClientWithConn(conn grpc.ClientConnInterface) *CodecClient {
	return &CodecClient{conn: conn}
}

// #endregion constructor

// #region close
// Close shuts down the gRPC connection.
func (c *CodecClient) Close() error {
	if c.closer == nil {
		return nil
	}
	return c.closer.Close()
}
// #endregion close

// #region environment
// Reset starts a new simulator episode and returns the first observation.
func (c *CodecClient) Reset(ctx context.Context) (env.Observation, error) {
	var obs env.Observation
	if err := c.call(ctx, methodReset, struct{}{}, &obs); err != nil {
		return env.Observation{}, fmt.Errorf("reset rpc: %w", err)
	}
	return obs, nil
}

// Step applies one action in the simulator.
func (c *CodecClient) Step(ctx context.Context, action env.Action) (env.StepResult, error) {
	req := struct {
		Action env.Action `json:"action"`
	}{Action: action}
	var resp stepMsg
	if err := c.call(ctx, methodStep, req, &resp); err != nil {
		return env.StepResult{}, fmt.Errorf("step rpc: %w", err)
	}
	return env.StepResult{
		Obs:    resp.Obs,
		Reward: resp.Reward,
		Done:   resp.Done,
		Info:   resp.Info,
	}, nil
}

// NoOp returns the identity action.
func (c *CodecClient) NoOp() env.Action {
	return env.NoOp()
}
// #endregion environment

// #region policy
// GetAction asks the goal-conditioned policy for the next action over a window.
func (c *CodecClient) GetAction(ctx context.Context, label string, embeddings [][]float32, states window.Slice) (float32, env.Action, error) {
	req := struct {
		Goal           string      `json:"goal"`
		GoalEmbeddings [][]float32 `json:"goal_embeddings"`
		States         statesMsg   `json:"states"`
	}{
		Goal:           label,
		GoalEmbeddings: embeddings,
		States:         columns(states),
	}
	var resp actionMsg
	if err := c.call(ctx, methodGetAction, req, &resp); err != nil {
		return 0, nil, fmt.Errorf("get action rpc: %w", err)
	}
	return resp.Ranking, resp.Action, nil
}

func columns(s window.Slice) statesMsg {
	m := statesMsg{
		RGB:        make([][]byte, s.Len()),
		Voxels:     make([][]int64, s.Len()),
		Compass:    make([][]float32, s.Len()),
		GPS:        make([][3]float32, s.Len()),
		Biome:      make([]int64, s.Len()),
		PrevAction: s.PrevActions,
	}
	for i, f := range s.Frames {
		m.RGB[i] = f.RGB
		m.Voxels[i] = f.Voxels
		m.Compass[i] = f.Compass
		m.GPS[i] = f.GPS
		m.Biome[i] = f.Biome
		m.Width, m.Height = f.Width, f.Height
	}
	return m
}
// #endregion policy

// #region embed
// Embed encodes a goal description with the bridge's text encoder.
func (c *CodecClient) Embed(ctx context.Context, text string) ([]float32, error) {
	req := struct {
		Text string `json:"text"`
	}{Text: text}
	var resp embedMsg
	if err := c.call(ctx, methodEmbed, req, &resp); err != nil {
		return nil, fmt.Errorf("embed rpc: %w", err)
	}
	return resp.Embedding, nil
}
// #endregion embed

// #region transport
// call round-trips req and resp through google.protobuf.Struct using their JSON shapes.
func (c *CodecClient) call(ctx context.Context, method string, req, resp any) error {
	raw, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	in := &structpb.Struct{}
	if err := protojson.Unmarshal(raw, in); err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	out := &structpb.Struct{}
	if err := c.conn.Invoke(ctx, method, in, out); err != nil {
		return err
	}

	data, err := protojson.Marshal(out)
	if err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if err := json.Unmarshal(data, resp); err != nil {
		log.Printf("[CODEC] %s: malformed response: %v", method, err)
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}
// #endregion transport
