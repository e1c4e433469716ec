package main

import (
	"fmt"
	"math"
	"time"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"

	"prefabforge/internal/components"
	"prefabforge/internal/engine"
	"prefabforge/internal/inspector"
	"prefabforge/internal/prefab"
)

const (
	toolbarHeight  = 32
	hierarchyWidth = 220
	inspectorWidth = 300
	rowHeight      = 22
	statusLifetime = 4 * time.Second
)

var (
	colorBgPanel       = rl.NewColor(38, 38, 48, 255)
	colorBgElement     = rl.NewColor(50, 50, 64, 255)
	colorBgHover       = rl.NewColor(62, 62, 80, 255)
	colorAccent        = rl.NewColor(66, 135, 245, 255)
	colorTextPrimary   = rl.NewColor(230, 230, 240, 255)
	colorTextSecondary = rl.NewColor(160, 160, 175, 255)
	colorTextMuted     = rl.NewColor(110, 110, 125, 255)
	colorWarning       = rl.NewColor(240, 110, 90, 255)
)

type panels struct {
	hierarchyScroll int32
	inspectorScroll int32
	addIndex        int
}

func newPanels() *panels {
	gui.SetStyle(gui.DEFAULT, gui.BACKGROUND_COLOR, gui.NewColorPropertyValue(colorBgPanel))
	gui.SetStyle(gui.DEFAULT, gui.BASE_COLOR_NORMAL, gui.NewColorPropertyValue(colorBgElement))
	gui.SetStyle(gui.DEFAULT, gui.BASE_COLOR_FOCUSED, gui.NewColorPropertyValue(colorBgHover))
	gui.SetStyle(gui.DEFAULT, gui.BASE_COLOR_PRESSED, gui.NewColorPropertyValue(colorAccent))
	gui.SetStyle(gui.DEFAULT, gui.TEXT_COLOR_NORMAL, gui.NewColorPropertyValue(colorTextSecondary))
	gui.SetStyle(gui.DEFAULT, gui.TEXT_COLOR_FOCUSED, gui.NewColorPropertyValue(colorTextPrimary))
	gui.SetStyle(gui.DEFAULT, gui.TEXT_COLOR_PRESSED, gui.NewColorPropertyValue(colorTextPrimary))
	gui.SetStyle(gui.DEFAULT, gui.TEXT_SIZE, 14)
	return &panels{}
}

func (p *panels) contains(pt rl.Vector2) bool {
	w := float32(rl.GetScreenWidth())
	return pt.Y < toolbarHeight || pt.X < hierarchyWidth || pt.X > w-inspectorWidth
}

func (p *panels) draw(a *App) {
	p.drawToolbar(a)
	p.drawHierarchy(a)
	p.drawInspector(a)
}

func (p *panels) drawToolbar(a *App) {
	w := float32(rl.GetScreenWidth())
	rl.DrawRectangle(0, 0, int32(w), toolbarHeight, colorBgPanel)

	x := float32(6)
	button := func(label string, width float32) bool {
		r := rl.Rectangle{X: x, Y: 5, Width: width, Height: toolbarHeight - 10}
		x += width + 4
		return gui.Button(r, label)
	}

	playLabel := "Play"
	if !a.renderer.EditMode() {
		playLabel = "Stop"
	}
	if button(playLabel, 56) {
		a.togglePlay()
	}
	if button("Undo", 56) {
		a.editor.Undo()
	}
	if button("Redo", 56) {
		a.editor.Redo()
	}
	if button("Save", 56) {
		a.save()
	}
	if button("Export", 64) {
		a.export()
	}
	sel := a.editor.Selected()
	parent := sel
	if parent == "" {
		parent = a.editor.Prefab().Root.ID
	}
	if button("+ Child", 64) {
		if id, err := a.editor.AddChild(parent, "GameObject"); err == nil {
			a.editor.Select(id)
		} else {
			a.notify(err.Error())
		}
	}
	if sel != "" {
		if button("Duplicate", 80) {
			a.report(a.editor.DuplicateNode(sel))
		}
		if button("Delete", 64) {
			a.report("", a.editor.DeleteNode(sel))
		}
	}

	h := a.editor.History()
	info := fmt.Sprintf("history %d/%d", h.Index()+1, h.Len())
	if h.Pending() {
		info += "*"
	}
	rl.DrawText(info, int32(x)+12, 9, 14, colorTextMuted)
	if a.status != "" && time.Since(a.statusTime) < statusLifetime {
		tw := rl.MeasureText(a.status, 14)
		rl.DrawText(a.status, int32(w)-inspectorWidth-tw-12, 9, 14, colorTextPrimary)
	}
}

type row struct {
	node  *prefab.GameObject
	depth int32
}

func rows(n *prefab.GameObject, depth int32, out []row) []row {
	out = append(out, row{node: n, depth: depth})
	for _, c := range n.Children {
		out = rows(c, depth+1, out)
	}
	return out
}

func (p *panels) drawHierarchy(a *App) {
	panelH := int32(rl.GetScreenHeight()) - toolbarHeight
	rl.DrawRectangle(0, toolbarHeight, hierarchyWidth, panelH, colorBgPanel)
	rl.DrawText("Hierarchy", 12, toolbarHeight+8, 16, colorTextSecondary)

	mouse := rl.GetMousePosition()
	list := rows(a.editor.Prefab().Root, 0, nil)
	top := int32(toolbarHeight + 30)
	if mouse.X < hierarchyWidth && mouse.Y > float32(top) {
		p.hierarchyScroll -= int32(rl.GetMouseWheelMove() * rowHeight)
	}
	maxScroll := int32(len(list))*rowHeight - (panelH - 30)
	p.hierarchyScroll = clampScroll(p.hierarchyScroll, maxScroll)

	rl.BeginScissorMode(0, top, hierarchyWidth, panelH-30)
	defer rl.EndScissorMode()

	sel := a.editor.Selected()
	for i, r := range list {
		y := top + int32(i)*rowHeight - p.hierarchyScroll
		bounds := rl.Rectangle{X: 0, Y: float32(y), Width: hierarchyWidth, Height: rowHeight}
		hovered := y+rowHeight > top && rl.CheckCollisionPointRec(mouse, bounds)
		switch {
		case r.node.ID == sel:
			rl.DrawRectangleRec(bounds, colorAccent)
		case hovered:
			rl.DrawRectangleRec(bounds, colorBgHover)
		}
		color := colorTextPrimary
		if r.node.Disabled || r.node.Hidden {
			color = colorTextMuted
		}
		rl.DrawText(r.node.DisplayName(), 12+r.depth*14, y+4, 14, color)
		if hovered && rl.IsMouseButtonPressed(rl.MouseLeftButton) {
			a.editor.Select(r.node.ID)
		}
	}
}

func clampScroll(v, limit int32) int32 {
	if limit < 0 {
		limit = 0
	}
	if v > limit {
		return limit
	}
	if v < 0 {
		return 0
	}
	return v
}

func (p *panels) drawInspector(a *App) {
	sw := int32(rl.GetScreenWidth())
	panelX := sw - inspectorWidth
	panelH := int32(rl.GetScreenHeight()) - toolbarHeight
	rl.DrawRectangle(panelX, toolbarHeight, inspectorWidth, panelH, colorBgPanel)
	rl.DrawText("Inspector", panelX+12, toolbarHeight+8, 16, colorTextSecondary)

	node := a.editor.SelectedNode()
	if node == nil {
		rl.DrawText("Nothing selected", panelX+12, toolbarHeight+40, 14, colorTextMuted)
		return
	}

	mouse := rl.GetMousePosition()
	top := int32(toolbarHeight + 30)
	if mouse.X > float32(panelX) && mouse.Y > float32(top) {
		p.inspectorScroll -= int32(rl.GetMouseWheelMove() * rowHeight)
	}
	rl.BeginScissorMode(panelX, top, inspectorWidth, panelH-30)
	defer rl.EndScissorMode()

	reg := a.editor.Registry()
	view := inspector.Build(node, reg)
	x := float32(panelX + 12)
	width := float32(inspectorWidth - 24)
	y := float32(top) - float32(p.inspectorScroll)

	rl.DrawText(view.Header.Name+"  ("+view.Header.ID+")", int32(x), int32(y), 14, colorTextPrimary)
	y += rowHeight
	disabled := gui.CheckBox(rl.Rectangle{X: x, Y: y, Width: 14, Height: 14}, "Disabled", view.Header.Disabled)
	hidden := gui.CheckBox(rl.Rectangle{X: x + 110, Y: y, Width: 14, Height: 14}, "Hidden", view.Header.Hidden)
	if disabled != view.Header.Disabled {
		a.report("", a.editor.SetDisabled(node.ID, disabled))
	}
	if hidden != view.Header.Hidden {
		a.report("", a.editor.SetHidden(node.ID, hidden))
	}
	y += rowHeight + 6

	for _, s := range view.Sections {
		y = p.drawSection(a, node.ID, s, x, y, width)
	}

	addable := inspector.AddableComponents(node, reg)
	if len(addable) > 0 {
		p.addIndex %= len(addable)
		if gui.Button(rl.Rectangle{X: x, Y: y, Width: 24, Height: 20}, "<") {
			p.addIndex = (p.addIndex + len(addable) - 1) % len(addable)
		}
		if gui.Button(rl.Rectangle{X: x + 28, Y: y, Width: width - 56, Height: 20}, "Add "+addable[p.addIndex]) {
			_, err := a.editor.AddComponent(node.ID, "", addable[p.addIndex])
			a.report("", err)
		}
		if gui.Button(rl.Rectangle{X: x + width - 24, Y: y, Width: 24, Height: 20}, ">") {
			p.addIndex = (p.addIndex + 1) % len(addable)
		}
		y += rowHeight
	}

	content := int32(y) + p.inspectorScroll - top
	p.inspectorScroll = clampScroll(p.inspectorScroll, content-(panelH-30))
}

func (p *panels) drawSection(a *App, id string, s inspector.Section, x, y, width float32) float32 {
	rl.DrawRectangleRec(rl.Rectangle{X: x - 4, Y: y, Width: width + 8, Height: rowHeight}, colorBgElement)
	titleColor := colorTextPrimary
	if s.Unknown || s.Err != "" {
		titleColor = colorWarning
	}
	rl.DrawText(s.Title, int32(x), int32(y)+4, 14, titleColor)
	if s.Key != prefab.KeyTransform {
		if gui.Button(rl.Rectangle{X: x + width - 20, Y: y + 2, Width: 18, Height: 18}, "x") {
			a.report("", a.editor.RemoveComponent(id, s.Key))
		}
	}
	y += rowHeight + 4
	if s.Err != "" {
		rl.DrawText(s.Err, int32(x), int32(y), 12, colorWarning)
		y += rowHeight
	}
	for _, f := range s.Fields {
		y = p.drawField(a, id, s.Key, f, x, y, width)
	}
	return y + 6
}

func (p *panels) drawField(a *App, id, key string, f engine.Field, x, y, width float32) float32 {
	labelW := float32(90)
	rl.DrawText(f.Label, int32(x), int32(y)+4, 13, colorTextSecondary)
	bx := x + labelW
	bw := width - labelW

	switch f.Kind {
	case engine.FieldBool:
		cur, _ := f.Value.(bool)
		if next := gui.CheckBox(rl.Rectangle{X: bx, Y: y + 3, Width: 14, Height: 14}, "", cur); next != cur {
			a.report("", a.editor.SetProperty(id, key, f.Name, next))
		}
		return y + rowHeight

	case engine.FieldNumber:
		cur, _ := prefab.ToFloat(f.Value)
		lo, hi := fieldRange(f)
		next := gui.Slider(rl.Rectangle{X: bx, Y: y + 2, Width: bw - 40, Height: 16}, "", fmt.Sprintf("%.2f", cur), float32(cur), lo, hi)
		if changed(float64(next), cur, f.Step) {
			a.report("", a.editor.SetProperty(id, key, f.Name, float64(next)))
		}
		return y + rowHeight

	case engine.FieldVec3:
		cur, _ := prefab.ToVec3(f.Value)
		lo, hi := fieldRange(f)
		next := cur
		for i, axis := range []string{"X", "Y", "Z"} {
			yy := y + float32(i)*rowHeight
			v := gui.Slider(rl.Rectangle{X: bx + 14, Y: yy + 2, Width: bw - 54, Height: 16}, axis, fmt.Sprintf("%.2f", cur[i]), float32(cur[i]), lo, hi)
			next[i] = float64(v)
		}
		for i := range next {
			if changed(next[i], cur[i], f.Step) {
				a.report("", a.editor.SetProperty(id, key, f.Name, []any{next[0], next[1], next[2]}))
				break
			}
		}
		return y + 3*rowHeight

	case engine.FieldEnum:
		cur, _ := f.Value.(string)
		if gui.Button(rl.Rectangle{X: bx, Y: y, Width: bw, Height: 20}, cur) && len(f.Options) > 0 {
			a.report("", a.editor.SetProperty(id, key, f.Name, nextOption(f.Options, cur)))
		}
		return y + rowHeight

	default:
		s := fmt.Sprint(f.Value)
		if s == "" || s == "<nil>" {
			s = "-"
		}
		if f.Kind == engine.FieldColor {
			if c, ok := colorSwatch(s); ok {
				rl.DrawRectangle(int32(bx), int32(y)+3, 14, 14, c)
				bx += 20
			}
		}
		rl.DrawText(s, int32(bx), int32(y)+4, 13, colorTextPrimary)
		return y + rowHeight
	}
}

func fieldRange(f engine.Field) (float32, float32) {
	if f.Max > f.Min {
		return float32(f.Min), float32(f.Max)
	}
	switch f.Name {
	case "rotation":
		return -math.Pi, math.Pi
	case "scale":
		return 0.01, 10
	}
	return -50, 50
}

// changed ignores slider jitter below half a step.
func changed(next, cur, step float64) bool {
	if step <= 0 {
		step = 0.01
	}
	return math.Abs(next-cur) >= step/2
}

func nextOption(options []string, cur string) string {
	for i, o := range options {
		if o == cur {
			return options[(i+1)%len(options)]
		}
	}
	return options[0]
}

func colorSwatch(v string) (rl.Color, bool) {
	c, ok := components.ParseColor(v)
	if !ok {
		return rl.Color{}, false
	}
	return rl.NewColor(c.R, c.G, c.B, c.A), true
}
