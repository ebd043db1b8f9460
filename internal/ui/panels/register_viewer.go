package panels

import (
	"fmt"
	"os"
	"time"

	"libmusdoom/internal/player"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
)

// VoiceViewer creates a panel showing the 18 OPL voice slots in real-time:
// which channel, key and note each is sounding, and its pan bits. window is
// needed for clipboard access.
func VoiceViewer(p *player.Player, window fyne.Window) (*fyne.Container, func()) {
	voiceText := widget.NewMultiLineEntry()
	voiceText.Wrapping = fyne.TextWrapOff
	voiceText.Disable() // selectable/copyable, not editable
	voiceScroll := container.NewScroll(voiceText)
	voiceScroll.SetMinSize(fyne.NewSize(300, 300))

	formatVoiceState := func() string {
		if p == nil {
			return "player not available\n"
		}

		var text string
		text += "=== OPL Voices ===\n\n"
		text += fmt.Sprintf("In use: %d / 18\n\n", p.VoicesInUse())

		voices := p.Voices()
		for i := range voices {
			v := &voices[i]
			if !v.InUse {
				text += fmt.Sprintf("  [%2d] free\n", i)
				continue
			}
			text += fmt.Sprintf("  [%2d] channel=%-2d key=%-3d note=%-3d pan=0x%02X\n",
				i, v.Channel, v.Key, v.Note, v.RegPan)
		}

		return text
	}

	updateFunc := func() {
		voiceText.SetText(formatVoiceState())
	}

	copyBtn := widget.NewButton("Copy All", func() {
		text := voiceText.Text
		if text != "" && window != nil {
			window.Clipboard().SetContent(text)
		}
	})

	saveBtn := widget.NewButton("Save Snapshot", func() {
		timestamp := time.Now().Format("20060102_150405")
		filename := fmt.Sprintf("voice_state_%s.txt", timestamp)

		stateText := formatVoiceState()
		stateText = fmt.Sprintf("Voice State Snapshot\nGenerated: %s\n\n%s",
			time.Now().Format("2006-01-02 15:04:05"), stateText)

		if err := os.WriteFile(filename, []byte(stateText), 0644); err != nil {
			fmt.Printf("Error saving voice state: %v\n", err)
		} else {
			fmt.Printf("Voice state saved to: %s\n", filename)
		}
	})

	buttons := container.NewHBox(copyBtn, saveBtn)

	updateFunc()

	box := container.NewVBox(
		widget.NewLabel("OPL Voices"),
		buttons,
		voiceScroll,
	)

	return box, updateFunc
}
