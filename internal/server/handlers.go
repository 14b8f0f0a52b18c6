package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/ironsheep/network-image-mcp/internal/imaging"
	"github.com/ironsheep/network-image-mcp/internal/loader"
	"github.com/ironsheep/network-image-mcp/internal/locator"
	"github.com/ironsheep/network-image-mcp/internal/vector"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "image_fetch", "image_cache_clear").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the named tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
// A load that fails is not a tool error: its outcome and reason are part of
// the result.
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(ctx, params.Name, params.Arguments)
	if err != nil {
		s.logger.Warn("tool failed", "tool", params.Name, "error", err)
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	switch name {
	// Loading
	case "image_fetch":
		return s.handleImageFetch(ctx, args)
	case "image_view_set":
		return s.handleImageViewSet(args)
	case "image_view_status":
		return s.handleImageViewStatus(ctx, args)

	// Cache Administration
	case "image_cache_key":
		return s.handleImageCacheKey(args)
	case "image_cache_clear":
		return s.handleImageCacheClear(args)
	case "image_cache_remove":
		return s.handleImageCacheRemove(args)

	// Vector Rendering
	case "image_rasterize_svg":
		return s.handleImageRasterizeSVG(args)

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// On marshal failure it returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// === Result Types ===

// ImageInfo describes a decoded image.
type ImageInfo struct {
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	Format     string `json:"format"`
	ColorDepth string `json:"color_depth"`
	HasAlpha   bool   `json:"has_alpha"`
	SizeBytes  int    `json:"size_bytes"`
}

func imageInfo(img *imaging.DecodedImage) *ImageInfo {
	if img == nil {
		return nil
	}
	return &ImageInfo{
		Width:      img.Width,
		Height:     img.Height,
		Format:     img.Format,
		ColorDepth: img.ColorDepth,
		HasAlpha:   img.HasAlpha,
		SizeBytes:  img.SizeBytes,
	}
}

// EventSummary is one emitted load event without its pixels.
type EventSummary struct {
	Source string     `json:"source"`
	Final  bool       `json:"final"`
	Image  *ImageInfo `json:"image,omitempty"`
}

// LoadFailure is the reason a load did not produce its image.
type LoadFailure struct {
	Stage   string `json:"stage,omitempty"`
	Kind    string `json:"kind,omitempty"`
	Status  int    `json:"status,omitempty"`
	Message string `json:"message"`
}

func loadFailure(err error) *LoadFailure {
	if err == nil {
		return nil
	}
	var lerr *loader.LoadError
	if !errors.As(err, &lerr) {
		return &LoadFailure{Message: err.Error()}
	}
	return &LoadFailure{
		Stage:   lerr.Stage.String(),
		Kind:    lerr.Kind.String(),
		Status:  lerr.StatusCode(),
		Message: lerr.Err.Error(),
	}
}

// === Loading Handlers ===

type loadArgs struct {
	Locator       string `json:"locator"`
	CacheStrategy string `json:"cache_strategy"`
	LoadThumbnail bool   `json:"load_thumbnail"`
	RequestWidth  int    `json:"request_width"`
	Token         string `json:"token"`
	Placeholder   string `json:"placeholder"`
}

func (a loadArgs) request() (loader.Request, error) {
	strategy, err := loader.ParseStrategy(a.CacheStrategy)
	if err != nil {
		return loader.Request{}, err
	}
	if a.RequestWidth < 0 {
		return loader.Request{}, fmt.Errorf("request_width must not be negative, got %d", a.RequestWidth)
	}
	return loader.Request{
		Locator:       a.Locator,
		Strategy:      strategy,
		LoadThumbnail: a.LoadThumbnail,
		RequestWidth:  a.RequestWidth,
		Token:         a.Token,
		Placeholder:   a.Placeholder,
	}, nil
}

type imageFetchArgs struct {
	loadArgs
	OutputPath string `json:"output_path"`
	MaxWidth   int    `json:"max_width"`
}

// FetchResult is the result of image_fetch.
type FetchResult struct {
	LoadID     string           `json:"load_id"`
	Outcome    string           `json:"outcome"`
	Source     string           `json:"source"`
	Events     []EventSummary   `json:"events"`
	Image      *ImageInfo       `json:"image,omitempty"`
	Error      *LoadFailure     `json:"error,omitempty"`
	OutputPath string           `json:"output_path,omitempty"`
	Encoded    *imaging.Encoded `json:"encoded,omitempty"`
}

func (s *Server) handleImageFetch(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a imageFetchArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	req, err := a.request()
	if err != nil {
		return nil, err
	}

	result := &FetchResult{Events: []EventSummary{}}
	var final loader.Event
	for ev := range s.loader.Load(ctx, req) {
		result.Events = append(result.Events, EventSummary{
			Source: ev.Source.String(),
			Final:  ev.Final,
			Image:  imageInfo(ev.Image),
		})
		if ev.Final {
			final = ev
		}
	}

	result.LoadID = final.LoadID
	result.Outcome = final.Outcome.String()
	result.Source = final.Source.String()
	result.Image = imageInfo(final.Image)
	result.Error = loadFailure(final.Err)

	if final.Image == nil {
		return result, nil
	}
	if a.OutputPath != "" {
		if err := final.Image.Save(a.OutputPath); err != nil {
			return nil, err
		}
		result.OutputPath = a.OutputPath
		return result, nil
	}
	enc, err := final.Image.Encode(a.MaxWidth)
	if err != nil {
		return nil, err
	}
	result.Encoded = enc
	return result, nil
}

// view is a named display target driven by a Binding.
type view struct {
	binding *loader.Binding
	done    <-chan struct{}
}

type imageViewSetArgs struct {
	loadArgs
	View string `json:"view"`
}

// ViewSetResult is the result of image_view_set.
type ViewSetResult struct {
	View       string `json:"view"`
	Generation uint64 `json:"generation"`
}

func (s *Server) handleImageViewSet(args json.RawMessage) (interface{}, error) {
	var a imageViewSetArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.View == "" {
		return nil, fmt.Errorf("view is required")
	}
	req, err := a.request()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.views[a.View]
	if !ok {
		name := a.View
		v = &view{binding: s.loader.Bind(func(ev loader.Event) {
			s.logger.Debug("view updated", "view", name, "generation", ev.Generation,
				"source", ev.Source.String(), "final", ev.Final)
		})}
		s.views[a.View] = v
	}

	// The load outlives this call; the binding cancels it when superseded.
	gen, done := v.binding.Set(context.Background(), req)
	v.done = done
	return &ViewSetResult{View: a.View, Generation: gen}, nil
}

type imageViewStatusArgs struct {
	View         string `json:"view"`
	Wait         bool   `json:"wait"`
	IncludeImage bool   `json:"include_image"`
	MaxWidth     int    `json:"max_width"`
}

// ViewStatusResult is the result of image_view_status.
type ViewStatusResult struct {
	View       string           `json:"view"`
	Generation uint64           `json:"generation"`
	Loading    bool             `json:"loading"`
	Last       *EventSummary    `json:"last_event,omitempty"`
	Outcome    string           `json:"outcome,omitempty"`
	Error      *LoadFailure     `json:"error,omitempty"`
	Displayed  *ImageInfo       `json:"displayed,omitempty"`
	Encoded    *imaging.Encoded `json:"encoded,omitempty"`
}

func (s *Server) handleImageViewStatus(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a imageViewStatusArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}

	s.mu.Lock()
	v, ok := s.views[a.View]
	var done <-chan struct{}
	if ok {
		done = v.done
	}
	s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("unknown view: %s", a.View)
	}

	if a.Wait {
		select {
		case <-done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	result := &ViewStatusResult{View: a.View, Generation: v.binding.Generation()}
	select {
	case <-done:
	default:
		result.Loading = true
	}

	if last, ok := v.binding.Last(); ok {
		result.Last = &EventSummary{Source: last.Source.String(), Final: last.Final, Image: imageInfo(last.Image)}
		if last.Final {
			result.Outcome = last.Outcome.String()
			result.Error = loadFailure(last.Err)
		}
	}

	displayed := v.binding.Displayed()
	result.Displayed = imageInfo(displayed)
	if a.IncludeImage && displayed != nil {
		enc, err := displayed.Encode(a.MaxWidth)
		if err != nil {
			return nil, err
		}
		result.Encoded = enc
	}
	return result, nil
}

// closeViews cancels every view's in-flight load.
func (s *Server) closeViews() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range s.views {
		v.binding.Close()
	}
}

// === Cache Administration Handlers ===

type imageCacheKeyArgs struct {
	Locator string `json:"locator"`
}

// CacheKeyResult is the result of image_cache_key.
type CacheKeyResult struct {
	Key       string `json:"key"`
	VectorKey string `json:"vector_key"`
	DiskPath  string `json:"disk_path"`
	InMemory  bool   `json:"in_memory"`
	OnDisk    bool   `json:"on_disk"`
}

func (s *Server) handleImageCacheKey(args json.RawMessage) (interface{}, error) {
	var a imageCacheKeyArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}

	loc := locator.Classify(a.Locator)
	key, ok := loc.Key()
	if !ok {
		return nil, fmt.Errorf("not a remote URL: %q", a.Locator)
	}

	store := s.loader.Store()
	result := &CacheKeyResult{
		Key:       key.String(),
		VectorKey: key.Vector().String(),
		DiskPath:  store.Disk.Path(key),
		InMemory:  store.Memory.Contains(key),
	}
	if path, ok := store.Disk.Lookup(key); ok {
		result.OnDisk = true
		result.DiskPath = path
	} else if path, ok := store.Disk.Lookup(key.Vector()); ok {
		result.OnDisk = true
		result.DiskPath = path
	}
	return result, nil
}

type imageCacheClearArgs struct {
	Tier string `json:"tier"`
}

// CacheClearResult is the result of image_cache_clear.
type CacheClearResult struct {
	Cleared []string `json:"cleared"`
}

func (s *Server) handleImageCacheClear(args json.RawMessage) (interface{}, error) {
	var a imageCacheClearArgs
	if len(args) > 0 {
		if err := json.Unmarshal(args, &a); err != nil {
			return nil, err
		}
	}

	store := s.loader.Store()
	result := &CacheClearResult{Cleared: []string{}}
	switch a.Tier {
	case "", "all":
		store.ClearMemory()
		result.Cleared = append(result.Cleared, "memory")
		if err := store.ClearDisk(); err != nil {
			return nil, err
		}
		result.Cleared = append(result.Cleared, "disk")
	case "memory":
		store.ClearMemory()
		result.Cleared = append(result.Cleared, "memory")
	case "disk":
		if err := store.ClearDisk(); err != nil {
			return nil, err
		}
		result.Cleared = append(result.Cleared, "disk")
	default:
		return nil, fmt.Errorf("unknown tier: %s", a.Tier)
	}

	s.logger.Info("cache cleared", "tiers", result.Cleared)
	return result, nil
}

type imageCacheRemoveArgs struct {
	Locator string `json:"locator"`
}

// CacheRemoveResult is the result of image_cache_remove.
type CacheRemoveResult struct {
	Key           string   `json:"key"`
	RemovedMemory bool     `json:"removed_memory"`
	RemovedDisk   []string `json:"removed_disk"`
}

func (s *Server) handleImageCacheRemove(args json.RawMessage) (interface{}, error) {
	var a imageCacheRemoveArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}

	key, ok := locator.Classify(a.Locator).Key()
	if !ok {
		return nil, fmt.Errorf("not a remote URL: %q", a.Locator)
	}

	removed, err := s.loader.Store().Remove(key)
	if err != nil {
		return nil, err
	}
	result := &CacheRemoveResult{Key: key.String(), RemovedMemory: removed.Memory, RemovedDisk: []string{}}
	for _, k := range removed.Disk {
		result.RemovedDisk = append(result.RemovedDisk, k.String())
	}

	s.logger.Info("cache entry removed", "key", result.Key, "memory", result.RemovedMemory, "disk", result.RemovedDisk)
	return result, nil
}

// === Vector Rendering Handlers ===

type imageRasterizeSVGArgs struct {
	Path       string `json:"path"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	OutputPath string `json:"output_path"`
}

// RasterizeResult is the result of image_rasterize_svg.
type RasterizeResult struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	OutputPath  string `json:"output_path,omitempty"`
	ImageBase64 string `json:"image_base64,omitempty"`
	MimeType    string `json:"mime_type"`
}

func (s *Server) handleImageRasterizeSVG(args json.RawMessage) (interface{}, error) {
	var a imageRasterizeSVGArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Width <= 0 {
		a.Width = vector.DefaultWidth
	}
	if a.Height <= 0 {
		a.Height = vector.DefaultHeight
	}
	if err := imaging.CheckSize(a.Width, a.Height, s.loader.MaxPixels()); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(a.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read svg: %w", err)
	}
	png, err := vector.Rasterize(data, a.Width, a.Height)
	if err != nil {
		return nil, err
	}

	result := &RasterizeResult{Width: a.Width, Height: a.Height, MimeType: "image/png"}
	if a.OutputPath != "" {
		if err := os.WriteFile(a.OutputPath, png, 0o644); err != nil {
			return nil, fmt.Errorf("failed to write png: %w", err)
		}
		result.OutputPath = a.OutputPath
		return result, nil
	}
	result.ImageBase64 = base64.StdEncoding.EncodeToString(png)
	return result, nil
}
