// Package style is the node taxonomy and the fixed visual constants used to
// derive per-node and per-relationship render attributes.
package style

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/alfredjeanlab/atlasgraph/internal/model"
)

// Visual constants for normal, hovered, selected and dimmed states.
const (
	NodeRadius         = 25.0
	NodeHoverRadius    = 30.0
	NodeSelectedRadius = 35.0

	NodeDimColor   = "#374151"
	NodeDimOpacity = 0.2

	EdgeColor         = "#6b7280"
	EdgeHoverColor    = "#93c5fd"
	EdgeSelectedColor = "#f59e0b"
	EdgeDimColor      = "#1f2937"
	EdgeDimOpacity    = 0.15

	EdgeWidth         = 1.0
	EdgeHoverWidth    = 2.0
	EdgeSelectedWidth = 3.0

	DefaultNodeColor = "#9ca3af"
)

// Category describes how one node type is displayed.
type Category struct {
	Color string `toml:"color"`
	Label string `toml:"label"`
}

// Palette maps node types to categories. The zero value falls back to
// DefaultPalette lookups.
type Palette struct {
	Categories map[string]Category `toml:"categories"`
}

var defaultCategories = map[string]Category{
	"EC2":              {Color: "#f97316", Label: "EC2 Instance"},
	"EC2Instance":      {Color: "#f97316", Label: "EC2 Instance"},
	"SG":               {Color: "#ef4444", Label: "Security Group"},
	"EC2SecurityGroup": {Color: "#ef4444", Label: "Security Group"},
	"VPC":              {Color: "#8b5cf6", Label: "VPC"},
	"Subnet":           {Color: "#a78bfa", Label: "Subnet"},
	"EC2Subnet":        {Color: "#a78bfa", Label: "Subnet"},
	"S3Bucket":         {Color: "#22c55e", Label: "S3 Bucket"},
	"IAMRole":          {Color: "#eab308", Label: "IAM Role"},
	"IAMPolicy":        {Color: "#facc15", Label: "IAM Policy"},
	"IAMUser":          {Color: "#fde047", Label: "IAM User"},
	"AWSAccount":       {Color: "#3b82f6", Label: "AWS Account"},
	"LoadBalancer":     {Color: "#06b6d4", Label: "Load Balancer"},
	"LoadBalancerV2":   {Color: "#06b6d4", Label: "Load Balancer"},
	"RDSInstance":      {Color: "#14b8a6", Label: "RDS Instance"},
	"LambdaFunction":   {Color: "#ec4899", Label: "Lambda Function"},
	"NetworkInterface": {Color: "#64748b", Label: "Network Interface"},
	"Internet":         {Color: "#dc2626", Label: "Internet"},
}

// DefaultPalette returns a copy of the built-in taxonomy.
func DefaultPalette() *Palette {
	p := &Palette{Categories: make(map[string]Category, len(defaultCategories))}
	for k, v := range defaultCategories {
		p.Categories[k] = v
	}
	return p
}

// LoadPalette reads a TOML file of category overrides on top of the defaults:
//
//	[categories.EC2]
//	color = "#ff8800"
//	label = "Instance"
func LoadPalette(path string) (*Palette, error) {
	p := DefaultPalette()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading palette: %w", err)
	}
	var overrides Palette
	if err := toml.Unmarshal(data, &overrides); err != nil {
		return nil, fmt.Errorf("parsing palette %s: %w", path, err)
	}
	for k, c := range overrides.Categories {
		base := p.Categories[k]
		if c.Color != "" {
			base.Color = c.Color
		}
		if c.Label != "" {
			base.Label = c.Label
		}
		p.Categories[k] = base
	}
	return p, nil
}

func (p *Palette) lookup(nodeType string) (Category, bool) {
	if p != nil && p.Categories != nil {
		c, ok := p.Categories[nodeType]
		return c, ok
	}
	c, ok := defaultCategories[nodeType]
	return c, ok
}

// Color returns the display color for a node type.
func (p *Palette) Color(nodeType string) string {
	if c, ok := p.lookup(nodeType); ok && c.Color != "" {
		return c.Color
	}
	return DefaultNodeColor
}

// TypeLabel returns the human label for a node type, falling back to the
// type tag itself with underscores spaced out.
func (p *Palette) TypeLabel(nodeType string) string {
	if c, ok := p.lookup(nodeType); ok && c.Label != "" {
		return c.Label
	}
	if nodeType == "" {
		return "Unknown"
	}
	return strings.ReplaceAll(nodeType, "_", " ")
}

// Caption returns the display caption of a node: its label, or its id.
func Caption(n model.GraphNode) string {
	if n.Label != "" {
		return n.Label
	}
	return n.ID
}
