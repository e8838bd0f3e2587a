// Package panel is the debug panel: a small fyne window that edits the
// scene's debug controls over the control channel.
package panel

import (
	"context"
	"fmt"
	"image/color"
	"strconv"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
	"go.uber.org/zap"

	"github.com/janessatran/portal/internal/colorx"
	"github.com/janessatran/portal/internal/debug"
	"github.com/janessatran/portal/internal/remote"
)

const (
	AppID       = "com.janessatran.portal.panel"
	WindowTitle = "Portal debug"
	panelWidth  = 400
	setTimeout  = 5 * time.Second
)

// Setter sends one change and reports the verdict. *remote.Client
// implements it.
type Setter interface {
	Set(ctx context.Context, c debug.Change) error
}

type colorRow struct {
	swatch *canvas.Rectangle
	label  *widget.Label
	value  colorx.RGB
}

type numberRow struct {
	slider *widget.Slider
	label  *widget.Label
}

type Panel struct {
	win       fyne.Window
	setter    Setter
	log       *zap.Logger
	accordion *widget.Accordion
	status    *widget.Label

	colors  map[string]*colorRow
	numbers map[string]*numberRow
}

// New builds the panel window for the given controls. It is not shown.
func New(a fyne.App, setter Setter, controls []remote.ControlState, collapsed bool, log *zap.Logger) *Panel {
	p := &Panel{
		win:     a.NewWindow(WindowTitle),
		setter:  setter,
		log:     log.Named("panel"),
		status:  widget.NewLabel(""),
		colors:  map[string]*colorRow{},
		numbers: map[string]*numberRow{},
	}

	form := widget.NewForm()
	for _, c := range controls {
		switch c.Kind {
		case debug.KindColor:
			form.Append(c.Name, p.colorControl(c))
		case debug.KindNumber:
			form.Append(c.Name, p.numberControl(c))
		}
	}

	item := widget.NewAccordionItem("Controls", form)
	item.Open = !collapsed
	p.accordion = widget.NewAccordion(item)

	p.status.Wrapping = fyne.TextWrapWord
	p.win.SetContent(container.NewVBox(p.accordion, p.status))
	p.win.Resize(fyne.NewSize(panelWidth, 0))
	return p
}

func (p *Panel) Window() fyne.Window { return p.win }

// Collapsed reports whether the controls section is closed.
func (p *Panel) Collapsed() bool { return !p.accordion.Items[0].Open }

func (p *Panel) colorControl(c remote.ControlState) fyne.CanvasObject {
	current, _ := colorx.Parse(fmt.Sprint(c.Value))
	row := &colorRow{
		swatch: canvas.NewRectangle(current.NRGBA()),
		label:  widget.NewLabel(current.Hex()),
		value:  current,
	}
	row.swatch.SetMinSize(fyne.NewSize(24, 24))
	p.colors[c.Name] = row

	name := c.Name
	pick := widget.NewButton("Pick…", func() {
		picker := dialog.NewColorPicker(name, "", func(col color.Color) {
			p.ApplyColor(name, col)
		}, p.win)
		picker.Advanced = true
		picker.SetColor(row.value.NRGBA())
		picker.Show()
	})
	return container.NewHBox(row.swatch, row.label, pick)
}

func (p *Panel) numberControl(c remote.ControlState) fyne.CanvasObject {
	s := widget.NewSlider(c.Min, c.Max)
	s.Step = c.Step
	label := widget.NewLabel("")
	row := &numberRow{slider: s, label: label}
	p.numbers[c.Name] = row

	s.OnChanged = func(v float64) { label.SetText(formatNumber(v)) }
	if v, ok := c.Value.(float64); ok {
		s.SetValue(v)
	}
	label.SetText(formatNumber(s.Value))

	name := c.Name
	s.OnChangeEnded = func(v float64) { p.send(debug.Change{Name: name, Value: v}) }
	return container.NewBorder(nil, nil, nil, label, s)
}

// ApplyColor updates the named color row and sends the change, as picking
// a color in the dialog does.
func (p *Panel) ApplyColor(name string, col color.Color) {
	row, ok := p.colors[name]
	if !ok {
		return
	}
	row.value = colorx.FromColor(col)
	row.swatch.FillColor = row.value.NRGBA()
	row.swatch.Refresh()
	row.label.SetText(row.value.Hex())
	p.send(debug.Change{Name: name, Value: row.value.Hex()})
}

// ApplyNumber moves the named slider and sends the change, as releasing the
// slider does. The value is snapped by the slider's own range and step.
func (p *Panel) ApplyNumber(name string, v float64) {
	row, ok := p.numbers[name]
	if !ok {
		return
	}
	row.slider.SetValue(v)
	p.send(debug.Change{Name: name, Value: row.slider.Value})
}

// Update refreshes rows from a snapshot pushed by the renderer without
// echoing the values back.
func (p *Panel) Update(states []remote.ControlState) {
	for _, st := range states {
		if row, ok := p.colors[st.Name]; ok {
			c, err := colorx.Parse(fmt.Sprint(st.Value))
			if err != nil {
				continue
			}
			row.value = c
			row.swatch.FillColor = c.NRGBA()
			row.swatch.Refresh()
			row.label.SetText(c.Hex())
		}
		if row, ok := p.numbers[st.Name]; ok {
			if v, ok := st.Value.(float64); ok {
				row.slider.SetValue(v)
			}
		}
	}
}

// Status is the last error shown, empty when the last change was accepted.
func (p *Panel) Status() string { return p.status.Text }

func (p *Panel) send(c debug.Change) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), setTimeout)
		defer cancel()
		err := p.setter.Set(ctx, c)
		msg := ""
		if err != nil {
			p.log.Warn("change rejected", zap.String("control", c.Name), zap.Error(err))
			msg = err.Error()
		}
		fyne.Do(func() { p.status.SetText(msg) })
	}()
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Run dials the renderer at url and shows the panel until the window is
// closed or the renderer goes away.
func Run(url string, collapsed bool, log *zap.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), setTimeout)
	client, err := remote.Dial(ctx, url, log)
	cancel()
	if err != nil {
		return err
	}
	defer client.Close()

	a := app.NewWithID(AppID)
	p := New(a, client, client.Snapshot(), collapsed, log)
	client.OnSnapshot(func(states []remote.ControlState) {
		fyne.Do(func() { p.Update(states) })
	})
	go func() {
		<-client.Done()
		log.Info("renderer closed the control channel")
		fyne.Do(a.Quit)
	}()

	p.win.SetMaster()
	p.win.ShowAndRun()
	return nil
}
