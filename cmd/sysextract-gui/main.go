// Package main provides the sysextract GUI application.
package main

import (
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"github.com/ZacharyZcR/SyscallExtract/internal/logging"
	"github.com/ZacharyZcR/SyscallExtract/internal/syscalls"
	"github.com/ZacharyZcR/SyscallExtract/internal/sysroot"
)

func main() {
	myApp := app.New()
	myWindow := myApp.NewWindow("sysextract - syscall table extractor")
	myWindow.Resize(fyne.NewSize(800, 650))

	sources := syscalls.DefaultSources()

	ntdllEntry := widget.NewEntry()
	ntdllEntry.SetText(sysroot.Resolve(sources[0].Path, ""))
	win32uEntry := widget.NewEntry()
	win32uEntry.SetText(sysroot.Resolve(sources[1].Path, ""))

	output := widget.NewMultiLineEntry()
	output.SetPlaceHolder("Extracted table will appear here...")
	output.Disable()

	statusLabel := widget.NewLabel("Ready")

	var table []byte

	pickFile := func(target *widget.Entry) *widget.Button {
		return widget.NewButton("Browse", func() {
			dialog.ShowFileOpen(func(file fyne.URIReadCloser, err error) {
				if err != nil || file == nil {
					return
				}
				defer func() { _ = file.Close() }()
				target.SetText(file.URI().Path())
			}, myWindow)
		})
	}

	extractButton := widget.NewButton("Extract", func() {
		cfg := syscalls.DefaultConfig()
		cfg.Sources[0].Path = ntdllEntry.Text
		cfg.Sources[1].Path = win32uEntry.Text

		statusLabel.SetText("Extracting...")
		go func() {
			text, total, err := extractTable(cfg)
			fyne.Do(func() {
				if err != nil {
					dialog.ShowError(err, myWindow)
					statusLabel.SetText("Extraction failed")
					return
				}
				table = text
				output.SetText(string(text))
				statusLabel.SetText(fmt.Sprintf("Extracted %d syscalls", total))
			})
		}()
	})

	saveButton := widget.NewButton("Save", func() {
		if len(table) == 0 {
			dialog.ShowError(fmt.Errorf("nothing extracted yet"), myWindow)
			return
		}
		dialog.ShowFileSave(func(file fyne.URIWriteCloser, err error) {
			if err != nil || file == nil {
				return
			}
			defer func() { _ = file.Close() }()
			if _, err := file.Write(table); err != nil {
				dialog.ShowError(err, myWindow)
				return
			}
			statusLabel.SetText("Saved to: " + file.URI().Path())
		}, myWindow)
	})

	sourcesBox := container.NewVBox(
		widget.NewLabel("ntdll.dll:"),
		container.NewBorder(nil, nil, nil, pickFile(ntdllEntry), ntdllEntry),
		widget.NewLabel("win32u.dll:"),
		container.NewBorder(nil, nil, nil, pickFile(win32uEntry), win32uEntry),
		widget.NewSeparator(),
		container.NewGridWithColumns(2, extractButton, saveButton),
	)

	mainContent := container.NewBorder(
		sourcesBox,
		container.NewVBox(
			widget.NewSeparator(),
			statusLabel,
		),
		nil,
		nil,
		container.NewVScroll(output),
	)

	myWindow.SetContent(mainContent)
	myWindow.ShowAndRun()
}

func extractTable(cfg syscalls.Config) ([]byte, int, error) {
	log := logging.New(logging.DefaultConfig())

	ex, total := syscalls.Extract(cfg, log)
	if total == 0 {
		return nil, 0, syscalls.ErrNoSyscallsExtracted
	}
	return ex.Bytes(), total, nil
}
