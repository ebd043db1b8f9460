// Package ui implements the transport-control window described in spec §6's
// UI integration notes: a Fyne window wrapping an internal/player.Player,
// exposing load/play/pause/stop/volume controls and two live debug panels
// (voices, logs).
//
// Grounded on the teacher's internal/ui/fyne_ui.go: the app/window/menu
// construction, the periodic ticker-driven panel refresh, and the
// file-open dialog pattern are adapted directly from FyneUI, narrowed from
// an emulator-frame display down to a player transport bar (no SDL2
// rendering surface is needed here; SDL2 is used by cmd/player only for
// audio device queuing).
package ui

import (
	"fmt"
	"io"
	"time"

	"libmusdoom/internal/debug"
	"libmusdoom/internal/player"
	"libmusdoom/internal/ui/panels"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"
)

// panelRefreshHz is the rate the voice/log panels redraw at. It is
// independent of the audio sample rate: the UI only reflects state, it
// never drives playback.
const panelRefreshHz = 10

// Window is the Fyne-based transport-control UI for a Player.
type Window struct {
	app    fyne.App
	window fyne.Window
	player *player.Player
	logger *debug.Logger

	running bool

	statusLabel  *widget.Label
	volumeSlider *widget.Slider
	loopCheck    *widget.Check

	showVoices bool
	showLogs   bool

	voicesPanel *fyne.Container
	logsPanel   *fyne.Container

	updateVoices func()
	updateLogs   func()

	splitContent *container.Split
}

// NewWindow builds the transport-control window around p. logger may be nil
// (logging stays disabled).
func NewWindow(p *player.Player, logger *debug.Logger) *Window {
	fyneApp := app.NewWithID("doom.libmusdoom.player")
	win := fyneApp.NewWindow("libMusDoom Player")

	w := &Window{
		app:    fyneApp,
		window: win,
		player: p,
		logger: logger,
	}

	w.statusLabel = widget.NewLabel("No score loaded")

	voicesPanel, updateVoices := panels.VoiceViewer(p, win)
	logsPanel, updateLogs := panels.LogViewerFyne(logger, win)
	w.voicesPanel = voicesPanel
	w.updateVoices = updateVoices
	w.logsPanel = logsPanel
	w.updateLogs = updateLogs
	w.voicesPanel.Hide()
	w.logsPanel.Hide()

	w.buildLayout()
	w.createMenus()

	return w
}

func (w *Window) buildLayout() {
	playBtn := widget.NewButton("Play", func() {
		if err := w.player.Start(w.loopEnabled()); err != nil {
			dialog.ShowError(err, w.window)
		}
	})
	pauseBtn := widget.NewButton("Pause", func() { w.player.Pause() })
	resumeBtn := widget.NewButton("Resume", func() { w.player.Resume() })
	stopBtn := widget.NewButton("Stop", func() { w.player.Stop() })
	loopCheck := widget.NewCheck("Loop", nil)
	w.loopCheck = loopCheck

	w.volumeSlider = widget.NewSlider(0, 127)
	w.volumeSlider.SetValue(float64(w.player.GetVolume()))
	w.volumeSlider.OnChanged = func(v float64) {
		w.player.SetVolume(int(v))
	}

	transport := container.NewHBox(
		playBtn, pauseBtn, resumeBtn, stopBtn, loopCheck,
		widget.NewLabel("Volume:"), w.volumeSlider,
	)

	top := container.NewVBox(transport, w.statusLabel)

	rightPanels := container.NewVBox(w.voicesPanel, w.logsPanel)
	split := container.NewHSplit(widget.NewLabel(""), rightPanels)
	split.SetOffset(0.0)
	w.splitContent = split

	content := container.NewBorder(top, nil, nil, nil, split)
	w.window.SetContent(content)
	w.window.Resize(fyne.NewSize(900, 600))
}

func (w *Window) loopEnabled() bool {
	return w.loopCheck != nil && w.loopCheck.Checked
}

func (w *Window) logUIf(format string, args ...interface{}) {
	if w.logger != nil {
		w.logger.LogUIf(debug.LogLevelDebug, format, args...)
	}
}

func (w *Window) createMenus() {
	fileMenu := fyne.NewMenu("File",
		fyne.NewMenuItem("Open GENMIDI...", func() {
			d := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
				if err != nil {
					dialog.ShowError(err, w.window)
					return
				}
				if reader == nil {
					return
				}
				defer reader.Close()
				data, readErr := io.ReadAll(reader)
				if readErr != nil {
					dialog.ShowError(readErr, w.window)
					return
				}
				if loadErr := w.player.LoadGENMIDI(data); loadErr != nil {
					dialog.ShowError(loadErr, w.window)
					return
				}
				w.statusLabel.SetText(fmt.Sprintf("Loaded GENMIDI: %s", reader.URI().Name()))
				w.logUIf("loaded GENMIDI bank from %s", reader.URI().Name())
			}, w.window)
			d.SetFilter(storage.NewExtensionFileFilter([]string{".op2", ".genmidi"}))
			d.Show()
		}),
		fyne.NewMenuItem("Open MUS...", func() {
			d := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
				if err != nil {
					dialog.ShowError(err, w.window)
					return
				}
				if reader == nil {
					return
				}
				defer reader.Close()
				data, readErr := io.ReadAll(reader)
				if readErr != nil {
					dialog.ShowError(readErr, w.window)
					return
				}
				if loadErr := w.player.LoadMUS(data); loadErr != nil {
					dialog.ShowError(loadErr, w.window)
					return
				}
				w.statusLabel.SetText(fmt.Sprintf("Loaded MUS: %s", reader.URI().Name()))
				w.logUIf("loaded MUS score from %s", reader.URI().Name())
			}, w.window)
			d.SetFilter(storage.NewExtensionFileFilter([]string{".mus"}))
			d.Show()
		}),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Exit", func() { w.window.Close() }),
	)

	viewMenu := fyne.NewMenu("View",
		fyne.NewMenuItem("Toggle Voices Panel", func() { w.toggleVoices() }),
		fyne.NewMenuItem("Toggle Log Panel", func() { w.toggleLogs() }),
	)

	w.window.SetMainMenu(fyne.NewMainMenu(fileMenu, viewMenu))
}

func (w *Window) toggleVoices() {
	w.showVoices = !w.showVoices
	if w.showVoices {
		w.voicesPanel.Show()
	} else {
		w.voicesPanel.Hide()
	}
	w.logUIf("voices panel visible=%v", w.showVoices)
	w.updateSplit()
}

func (w *Window) toggleLogs() {
	w.showLogs = !w.showLogs
	if w.showLogs {
		w.logsPanel.Show()
	} else {
		w.logsPanel.Hide()
	}
	w.logUIf("log panel visible=%v", w.showLogs)
	w.updateSplit()
}

func (w *Window) updateSplit() {
	if w.showVoices || w.showLogs {
		w.splitContent.SetOffset(0.3)
	} else {
		w.splitContent.SetOffset(0.0)
	}
}

// Run shows the window and blocks until it is closed, refreshing the
// status label and debug panels on a fixed ticker.
func (w *Window) Run() error {
	w.running = true
	go w.updateLoop()
	w.window.ShowAndRun()
	w.running = false
	return nil
}

func (w *Window) updateLoop() {
	ticker := time.NewTicker(time.Second / panelRefreshHz)
	defer ticker.Stop()
	for w.running {
		<-ticker.C
		w.refresh()
	}
}

func (w *Window) refresh() {
	state := "stopped"
	if w.player.IsPlaying() {
		state = "playing"
	}
	w.statusLabel.SetText(fmt.Sprintf("%s | position: %dms | voices: %d/18 | volume: %d",
		state, w.player.GetPositionMS(), w.player.VoicesInUse(), w.player.GetVolume()))

	if w.showVoices {
		w.updateVoices()
	}
	if w.showLogs {
		w.updateLogs()
	}
}
