package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerPrompts() {
	s.mcp.AddPrompt(mcp.NewPrompt("design_product",
		mcp.WithPromptDescription("Guide through designing a product from a short brief"),
		mcp.WithArgument("brief",
			mcp.ArgumentDescription("What the design should say or show"),
			mcp.RequiredArgument(),
		),
		mcp.WithArgument("productType",
			mcp.ArgumentDescription("Kind of product, e.g. tshirt or hoodie"),
		),
	), s.handleDesignProductPrompt)

	s.mcp.AddPrompt(mcp.NewPrompt("front_and_back",
		mcp.WithPromptDescription("Lay out matching front and back designs for one color"),
		mcp.WithArgument("color",
			mcp.ArgumentDescription("Product color"),
			mcp.RequiredArgument(),
		),
	), s.handleFrontAndBackPrompt)
}

func (s *Server) handleDesignProductPrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	brief := req.Params.Arguments["brief"]
	productType := req.Params.Arguments["productType"]
	if productType == "" {
		productType = "tshirt"
	}
	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Design a %s: %s", productType, brief),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.TextContent{
					Type: "text",
					Text: fmt.Sprintf(`Create a %s design for this brief: "%s". Follow these steps:

1. Use list_studio_products and pick a product of type %s
2. Call open_studio with that product; note the canvas size and designArea it returns
3. Add the main message with add_text and style it with update_text (size, color, weight)
4. Use move_element to position elements inside the designArea; check with list_elements
5. Save with save_design, then export_design for a print file

Keep every element inside the design area and prefer strong contrast with the product color.`, productType, brief, productType),
				},
			},
		},
	}, nil
}

func (s *Server) handleFrontAndBackPrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	color := req.Params.Arguments["color"]
	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Front and back designs on %s", color),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.TextContent{
					Type: "text",
					Text: fmt.Sprintf(`Design both faces of the open product in %s:

1. switch_context to color "%s", view "front" and add a large headline
2. switch_context to view "back" and add a smaller matching line near the top of the design area
3. Switch back to the front and confirm with list_elements that the headline is unchanged
4. save_design once both views look right`, color, color),
				},
			},
		},
	}, nil
}
