package util

import (
	"errors"
	"os"
	"os/exec"
	"runtime"
)

// ErrHeadless 没有图形界面（服务器部署），不尝试打开浏览器
var ErrHeadless = errors.New("no display available")

// browserCommands 按平台排列的打开方式，前者失败时依次尝试后者
func browserCommands(goos, url string) [][]string {
	switch goos {
	case "windows":
		// rundll32 在 Windows 7 上比 cmd /c start 稳定
		return [][]string{
			{"rundll32", "url.dll,FileProtocolHandler", url},
			{"explorer", url},
		}
	case "darwin":
		return [][]string{{"open", url}}
	default:
		return [][]string{
			{"xdg-open", url},
			{"sensible-browser", url},
			{"google-chrome", url},
			{"firefox", url},
			{"chromium-browser", url},
		}
	}
}

// headless 判断 Linux/BSD 下是否没有图形会话
func headless(goos string, getenv func(string) string) bool {
	if goos == "windows" || goos == "darwin" {
		return false
	}
	return getenv("DISPLAY") == "" && getenv("WAYLAND_DISPLAY") == ""
}

// OpenBrowser 用默认浏览器打开控制台地址
func OpenBrowser(url string) error {
	if headless(runtime.GOOS, os.Getenv) {
		return ErrHeadless
	}

	var err error
	for _, args := range browserCommands(runtime.GOOS, url) {
		if err = exec.Command(args[0], args[1:]...).Start(); err == nil {
			return nil
		}
	}
	return err
}
