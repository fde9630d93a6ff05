package viz

import (
	"bytes"
	"fmt"
	"html/template"
)

// compiledTemplate is parsed at init time to fail fast on template errors.
var compiledTemplate *template.Template

func init() {
	compiledTemplate = template.Must(template.New("viz").Parse(htmlTemplate))
}

// HTMLOptions configures HTML generation.
type HTMLOptions struct {
	Layout string // "force", "circle", "grid" or "concentric"
	Title  string // page title
}

// DefaultOptions returns default HTML generation options.
func DefaultOptions() HTMLOptions {
	return HTMLOptions{Layout: "force"}
}

// ValidLayouts lists the supported layout algorithm names.
var ValidLayouts = []string{"force", "circle", "grid", "concentric"}

// GenerateHTML generates a self-contained HTML file for the graph visualization.
func GenerateHTML(graph *GraphData, opts HTMLOptions) (string, error) {
	if graph == nil {
		return "", fmt.Errorf("graph cannot be nil")
	}
	if err := validateLayout(opts.Layout); err != nil {
		return "", err
	}

	graphJSON, err := graph.ToCytoscapeJSON()
	if err != nil {
		return "", err
	}

	title := opts.Title
	if title == "" {
		title = "Product Graph"
	}

	data := templateData{
		Title:     title,
		GraphJSON: template.JS(graphJSON),
		Layout:    layoutToCytoscape(opts.Layout),
		Empty:     graph.IsEmpty(),
	}

	var buf bytes.Buffer
	if err := compiledTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// validateLayout checks if the layout option is valid.
func validateLayout(layout string) error {
	if layout == "" {
		return nil
	}
	for _, l := range ValidLayouts {
		if l == layout {
			return nil
		}
	}
	return fmt.Errorf("invalid layout %q: must be one of %v", layout, ValidLayouts)
}

// templateData holds data for the HTML template.
type templateData struct {
	Title     string
	GraphJSON template.JS
	Layout    string
	Empty     bool
}

// layoutToCytoscape converts user-friendly layout names to Cytoscape.js layout algorithm names.
func layoutToCytoscape(layout string) string {
	switch layout {
	case "circle", "grid", "concentric":
		return layout
	}
	return "cose"
}

const htmlTemplate = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <title>{{.Title}}</title>
  <script src="https://unpkg.com/cytoscape@3/dist/cytoscape.min.js"></script>
  <style>
    * { box-sizing: border-box; }
    body {
      font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, Helvetica, Arial, sans-serif;
      margin: 0;
      background: #f5f5f5;
    }
    #cy { width: 100%; height: 100vh; background: white; }
    .empty-state { text-align: center; color: #666; padding-top: 40vh; }
    #tooltip {
      position: absolute;
      display: none;
      background: white;
      border: 1px solid #ccc;
      border-radius: 4px;
      padding: 8px 12px;
      box-shadow: 0 2px 8px rgba(0,0,0,0.15);
      max-width: 320px;
      font-size: 13px;
      z-index: 1000;
      pointer-events: none;
    }
    #tooltip .type { font-size: 10px; text-transform: uppercase; color: #888; margin-bottom: 4px; }
    #tooltip .label { font-weight: bold; margin-bottom: 4px; }
    #tooltip .detail { color: #555; margin: 2px 0; }
  </style>
</head>
<body>
{{if .Empty}}
  <div class="empty-state"><h2>No graph data</h2><p>Run <code>skb build</code> first.</p></div>
{{else}}
  <div id="cy"></div>
  <div id="tooltip"></div>
  <script>
    (function() {
      const graphData = {{.GraphJSON}};
      const layout = "{{.Layout}}";

      const cy = cytoscape({
        container: document.getElementById('cy'),
        elements: graphData,
        style: [
          {
            selector: 'node',
            style: {
              'background-color': '#E8923A',
              'shape': 'diamond',
              'label': 'data(label)',
              'color': '#333',
              'font-size': '10px',
              'text-valign': 'bottom',
              'text-margin-y': '5px',
              'width': 'mapData(connectionCount, 0, 20, 20, 50)',
              'height': 'mapData(connectionCount, 0, 20, 20, 50)'
            }
          },
          {
            selector: 'node[type="product"]',
            style: { 'background-color': '#4A90D9', 'shape': 'ellipse', 'width': '28px', 'height': '28px' }
          },
          {
            selector: 'node[?focus]',
            style: { 'border-width': 4, 'border-color': '#C0392B' }
          },
          {
            selector: 'edge',
            style: {
              'line-color': '#95A5A6',
              'target-arrow-color': '#95A5A6',
              'target-arrow-shape': 'triangle',
              'curve-style': 'bezier',
              'width': 2
            }
          },
          {
            selector: 'edge[relationshipType="also_buy"]',
            style: { 'line-color': '#5CB85C', 'target-arrow-color': '#5CB85C' }
          },
          {
            selector: 'edge[relationshipType="also_view"]',
            style: { 'line-color': '#337AB7', 'target-arrow-color': '#337AB7' }
          },
          { selector: 'node.dimmed', style: { 'opacity': 0.3 } },
          { selector: 'edge.dimmed', style: { 'opacity': 0.2 } }
        ],
        layout: {
          name: layout,
          animate: false,
          nodeRepulsion: 8000,
          idealEdgeLength: 100,
          concentric: function(node) { return -node.data('depth'); },
          levelWidth: function() { return 1; }
        }
      });

      const tooltip = document.getElementById('tooltip');

      function escapeHtml(str) {
        if (!str) return '';
        return String(str).replace(/&/g, '&amp;')
                          .replace(/</g, '&lt;')
                          .replace(/>/g, '&gt;')
                          .replace(/"/g, '&quot;');
      }

      function nodeTooltip(node) {
        const d = node.data();
        let html = '<div class="type">' + escapeHtml(d.type) + ' #' + d.id + '</div>';
        html += '<div class="label">' + escapeHtml(d.title || d.label) + '</div>';
        if (d.key) html += '<div class="detail">Key: ' + escapeHtml(d.key) + '</div>';
        if (d.brand) html += '<div class="detail">Brand: ' + escapeHtml(d.brand) + '</div>';
        if (d.price) html += '<div class="detail">Price: ' + escapeHtml(d.price) + '</div>';
        if (d.category) html += '<div class="detail">Category: ' + escapeHtml(d.category) + '</div>';
        if (d.reviews) html += '<div class="detail">Reviews: ' + d.reviews + '</div>';
        html += '<div class="detail">Connections: ' + d.connectionCount + '</div>';
        return html;
      }

      function show(evt, content) {
        tooltip.innerHTML = content;
        tooltip.style.display = 'block';
        const pos = evt.renderedPosition || evt.position;
        tooltip.style.left = (pos.x + 15) + 'px';
        tooltip.style.top = (pos.y + 15) + 'px';
      }

      cy.on('mouseover', 'node', function(evt) { show(evt, nodeTooltip(evt.target)); });
      cy.on('mouseover', 'edge', function(evt) {
        show(evt, '<div class="type">' + escapeHtml(evt.target.data('relationshipType')) + '</div>');
      });
      cy.on('mouseout', 'node, edge', function() { tooltip.style.display = 'none'; });

      cy.on('tap', 'node', function(evt) {
        const hood = evt.target.closedNeighborhood();
        cy.elements().removeClass('dimmed');
        cy.elements().not(hood).addClass('dimmed');
      });
      cy.on('tap', function(evt) {
        if (evt.target === cy) cy.elements().removeClass('dimmed');
      });
    })();
  </script>
{{end}}
</body>
</html>`
