package main

import (
	"image/png"
	"path/filepath"

	fyne "fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"github.com/MathDEV-0/ProxyTCPRedes/src/charts"
	"github.com/MathDEV-0/ProxyTCPRedes/src/tcplog"
)

// showInWindow opens the rendered chart and blocks until the window is closed.
func showInWindow(res *charts.Result) error {
	a := app.NewWithID("com.proxytcp.tcpplot")
	w := a.NewWindow("TCP Connection Analysis - " + filepath.Base(res.Log.Path))

	img := canvas.NewImageFromImage(res.Image)
	img.FillMode = canvas.ImageFillOriginal
	scroll := container.NewScroll(img)

	pathLabel := widget.NewLabel(res.OutputPath)
	saveBtn := widget.NewButton("Save as...", func() { exportChartPNG(w, img, filepath.Base(res.OutputPath)) })
	closeBtn := widget.NewButton("Close", func() { w.Close() })
	top := container.NewBorder(nil, nil, nil, container.NewHBox(saveBtn, closeBtn), pathLabel)

	w.SetContent(container.NewBorder(top, nil, nil, nil, scroll))
	b := res.Image.Bounds()
	w.Resize(fyne.NewSize(float32(min(b.Dx()+20, 1400)), float32(min(b.Dy()+60, 1000))))
	w.ShowAndRun()
	return nil
}

func exportChartPNG(w fyne.Window, img *canvas.Image, defaultName string) {
	if img == nil || img.Image == nil {
		dialog.ShowInformation("Export", "No chart to export.", w)
		return
	}
	fs := dialog.NewFileSave(func(wc fyne.URIWriteCloser, err error) {
		if err != nil || wc == nil {
			return
		}
		defer wc.Close()
		if err := png.Encode(wc, img.Image); err != nil {
			tcplog.Errorf("export %s: %v", wc.URI().Path(), err)
			dialog.ShowError(err, w)
			return
		}
		tcplog.Infof("chart exported to %s", wc.URI().Path())
	}, w)
	fs.SetFileName(defaultName)
	fs.Show()
}
