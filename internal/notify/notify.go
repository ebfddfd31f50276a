// Package notify sends desktop notifications when a collection run ends.
package notify

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/billmal071/narubooks/internal/config"
	"github.com/billmal071/narubooks/internal/logging"
)

// Notification types
const (
	TypeSuccess = "success"
	TypeError   = "error"
	TypeInfo    = "info"
)

const appName = "narubooks"

// run executes a notifier command; replaced in tests
var run = func(ctx context.Context, name string, args ...string) error {
	return exec.CommandContext(ctx, name, args...).Run()
}

// Send sends a desktop notification if enabled in config. It waits at most
// a few seconds so a short-lived process still delivers it.
func Send(title, message, notifyType string) {
	if cfg := config.Get(); cfg == nil || !cfg.Notify.Enabled {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := sendNotification(ctx, runtime.GOOS, title, message, notifyType); err != nil {
		logging.Debug().Err(err).Msg("desktop notification failed")
	}
}

// RunComplete announces a finished collection run
func RunComplete(books, libraries, failed int) {
	Send("Collection Complete", completeMessage(books, libraries, failed), completeType(failed))
}

// RunFailed announces a run that wrote no snapshot
func RunFailed(reason string) {
	Send("Collection Failed", reason, TypeError)
}

func completeMessage(books, libraries, failed int) string {
	msg := fmt.Sprintf("%d books from %d libraries", books, libraries)
	if failed > 0 {
		msg += fmt.Sprintf(" (%d failed)", failed)
	}
	return msg
}

func completeType(failed int) string {
	if failed > 0 {
		return TypeInfo
	}
	return TypeSuccess
}

func sendNotification(ctx context.Context, goos, title, message, notifyType string) error {
	switch goos {
	case "linux":
		return sendLinuxNotification(ctx, title, message, notifyType)
	case "darwin":
		return sendMacNotification(ctx, title, message)
	case "windows":
		return sendWindowsNotification(ctx, title, message)
	}
	return nil
}

func sendLinuxNotification(ctx context.Context, title, message, notifyType string) error {
	icon := "dialog-information"
	switch notifyType {
	case TypeSuccess:
		icon = "dialog-ok"
	case TypeError:
		icon = "dialog-error"
	}
	return run(ctx, "notify-send", "-i", icon, "-a", appName, title, message)
}

func sendMacNotification(ctx context.Context, title, message string) error {
	script := `display notification "` + escapeAppleScript(message) + `" with title "` + escapeAppleScript(title) + `"`
	return run(ctx, "osascript", "-e", script)
}

func sendWindowsNotification(ctx context.Context, title, message string) error {
	script := `
	[Windows.UI.Notifications.ToastNotificationManager, Windows.UI.Notifications, ContentType = WindowsRuntime] | Out-Null
	[Windows.Data.Xml.Dom.XmlDocument, Windows.Data.Xml.Dom.XmlDocument, ContentType = WindowsRuntime] | Out-Null
	$template = '<toast><visual><binding template="ToastText02"><text id="1">` + escapeXML(title) + `</text><text id="2">` + escapeXML(message) + `</text></binding></visual></toast>'
	$xml = New-Object Windows.Data.Xml.Dom.XmlDocument
	$xml.LoadXml($template)
	$toast = [Windows.UI.Notifications.ToastNotification]::new($xml)
	[Windows.UI.Notifications.ToastNotificationManager]::CreateToastNotifier("` + appName + `").Show($toast)
	`
	return run(ctx, "powershell", "-Command", script)
}

var appleScriptEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

func escapeAppleScript(s string) string {
	return appleScriptEscaper.Replace(s)
}

var xmlEscaper = strings.NewReplacer(
	"<", "&lt;",
	">", "&gt;",
	"&", "&amp;",
	`"`, "&quot;",
	"'", "&apos;",
)

func escapeXML(s string) string {
	return xmlEscaper.Replace(s)
}
