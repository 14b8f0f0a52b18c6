package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// loadProperties are the load parameters shared by image_fetch and
// image_view_set.
func loadProperties() map[string]interface{} {
	return map[string]interface{}{
		"locator": map[string]interface{}{
			"type":        "string",
			"description": "http(s) URL, local file path, or resource:// reference. SVG documents are rasterized.",
		},
		"cache_strategy": map[string]interface{}{
			"type":        "string",
			"enum":        []string{"none", "memory", "disk"},
			"description": "Cache tier for remote URLs. Default none",
			"default":     "none",
		},
		"load_thumbnail": map[string]interface{}{
			"type":        "boolean",
			"description": "Fetch a 200px wide preview before the full image",
			"default":     false,
		},
		"request_width": map[string]interface{}{
			"type":        "integer",
			"description": "Width sent to the server as the w query parameter. 0 omits it",
			"default":     0,
		},
		"token": map[string]interface{}{
			"type":        "string",
			"description": "Sent as the token query parameter when set",
		},
		"placeholder": map[string]interface{}{
			"type":        "string",
			"description": "Locator of the image returned when the load fails, e.g. resource://images/placeholder.svg",
		},
	}
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	fetchProps := loadProperties()
	fetchProps["output_path"] = map[string]interface{}{
		"type":        "string",
		"description": "Write the final image here (format from the extension) instead of returning base64 PNG",
	}
	fetchProps["max_width"] = map[string]interface{}{
		"type":        "integer",
		"description": "Scale the returned base64 PNG down to at most this width. 0 returns full size",
		"default":     0,
	}

	viewProps := loadProperties()
	viewProps["view"] = map[string]interface{}{
		"type":        "string",
		"description": "Name of the display target. A new load for a view supersedes the previous one",
	}

	return []Tool{
		// Loading
		{
			Name:        "image_fetch",
			Description: "Resolve a locator to an image, applying the cache strategy, optional thumbnail-first loading, width negotiation and token. Returns every emitted event and the final image.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": fetchProps,
				"required":   []string{"locator"},
			},
		},
		{
			Name:        "image_view_set",
			Description: "Start loading a locator into a named view in the background. Any load still running for the view is canceled and its results are discarded.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": viewProps,
				"required":   []string{"view", "locator"},
			},
		},
		{
			Name:        "image_view_status",
			Description: "Report what a view currently displays and whether its latest load has finished.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"view": map[string]interface{}{
						"type":        "string",
						"description": "Name of the display target",
					},
					"wait": map[string]interface{}{
						"type":        "boolean",
						"description": "Block until the latest load has finished",
						"default":     false,
					},
					"include_image": map[string]interface{}{
						"type":        "boolean",
						"description": "Return the displayed image as base64 PNG",
						"default":     false,
					},
					"max_width": map[string]interface{}{
						"type":        "integer",
						"description": "Scale the returned image down to at most this width",
						"default":     0,
					},
				},
				"required": []string{"view"},
			},
		},

		// Cache Administration
		{
			Name:        "image_cache_key",
			Description: "Show the cache key of a remote URL and whether it is cached in memory and on disk.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"locator": map[string]interface{}{
						"type":        "string",
						"description": "http(s) URL",
					},
				},
				"required": []string{"locator"},
			},
		},
		{
			Name:        "image_cache_clear",
			Description: "Empty the memory cache, delete the disk cache, or both.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"tier": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"memory", "disk", "all"},
						"description": "Which cache to clear. Default all",
						"default":     "all",
					},
				},
			},
		},
		{
			Name:        "image_cache_remove",
			Description: "Remove one remote URL from the memory cache and delete its disk entries, raster and vector.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"locator": map[string]interface{}{
						"type":        "string",
						"description": "http(s) URL",
					},
				},
				"required": []string{"locator"},
			},
		},

		// Vector Rendering
		{
			Name:        "image_rasterize_svg",
			Description: "Render an SVG file to PNG, scaled to fit the target size with its aspect ratio kept and centered on a transparent canvas.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the SVG file",
					},
					"width": map[string]interface{}{
						"type":        "integer",
						"description": "Canvas width in pixels. Default 200. width*height may not exceed the max_pixels setting",
						"default":     200,
					},
					"height": map[string]interface{}{
						"type":        "integer",
						"description": "Canvas height in pixels. Default 200",
						"default":     200,
					},
					"output_path": map[string]interface{}{
						"type":        "string",
						"description": "Write the PNG here instead of returning base64",
					},
				},
				"required": []string{"path"},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
