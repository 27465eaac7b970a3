package probe

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ahmedrzakhan/portfolio-analytics/internal/domain"
)

var (
	mobilePattern = regexp.MustCompile(`(?i)Android|webOS|iPhone|iPad|iPod|BlackBerry|IEMobile|Opera Mini`)

	chromeVersion  = regexp.MustCompile(`Chrome/([0-9.]+)`)
	firefoxVersion = regexp.MustCompile(`Firefox/([0-9.]+)`)
	safariVersion  = regexp.MustCompile(`Version/([0-9.]+)`)
	edgeVersion    = regexp.MustCompile(`Edge/([0-9.]+)`)

	windowsVersion = regexp.MustCompile(`Windows NT ([0-9.]+)`)
	macVersion     = regexp.MustCompile(`Mac OS X ([0-9_]+)`)
	androidVersion = regexp.MustCompile(`Android ([0-9.]+)`)
	iosVersion     = regexp.MustCompile(`OS ([0-9_]+)`)
)

// DetectDevice classifies the host device from its user-agent string and
// screen signals. Tablet detection takes precedence over mobile, which
// takes precedence over the desktop default.
func DetectDevice(env Environment) *domain.DeviceInfo {
	ua := env.UserAgent

	isMobile := mobilePattern.MatchString(ua)
	isTablet := detectTablet(ua)

	deviceType := domain.DeviceDesktop
	if isTablet {
		deviceType = domain.DeviceTablet
	} else if isMobile {
		deviceType = domain.DeviceMobile
	}

	browserName, browserVersion := detectBrowser(ua)
	osName, osVersion := detectOS(ua)

	return &domain.DeviceInfo{
		DeviceType:       deviceType,
		BrowserName:      browserName,
		BrowserVersion:   browserVersion,
		OSName:           osName,
		OSVersion:        osVersion,
		ScreenResolution: fmt.Sprintf("%dx%d", env.ScreenWidth, env.ScreenHeight),
		ColorDepth:       env.ColorDepth,
		Timezone:         env.Timezone,
		Language:         env.Language,
		IsMobile:         isMobile,
		IsTouchDevice:    env.TouchCapable || env.MaxTouchPoints > 0,
	}
}

// detectTablet matches iPads, and Android devices that expose both the
// Mobile and Safari tokens.
func detectTablet(ua string) bool {
	lower := strings.ToLower(ua)
	if strings.Contains(lower, "ipad") {
		return true
	}
	return strings.Contains(lower, "android") &&
		strings.Contains(lower, "mobile") &&
		strings.Contains(lower, "safari")
}

// detectBrowser checks Chrome before Safari because Chrome's user agent
// also carries the Safari token.
func detectBrowser(ua string) (string, string) {
	switch {
	case strings.Contains(ua, "Chrome"):
		return "Chrome", matchVersion(chromeVersion, ua)
	case strings.Contains(ua, "Firefox"):
		return "Firefox", matchVersion(firefoxVersion, ua)
	case strings.Contains(ua, "Safari"):
		return "Safari", matchVersion(safariVersion, ua)
	case strings.Contains(ua, "Edge"):
		return "Edge", matchVersion(edgeVersion, ua)
	}
	return "Unknown", "Unknown"
}

func detectOS(ua string) (string, string) {
	switch {
	case strings.Contains(ua, "Windows"):
		return "Windows", matchVersion(windowsVersion, ua)
	case strings.Contains(ua, "Mac"):
		return "macOS", underscoresToDots(matchVersion(macVersion, ua))
	case strings.Contains(ua, "Linux"):
		return "Linux", "Unknown"
	case strings.Contains(ua, "Android"):
		return "Android", matchVersion(androidVersion, ua)
	case strings.Contains(ua, "iOS"):
		return "iOS", underscoresToDots(matchVersion(iosVersion, ua))
	}
	return "Unknown", "Unknown"
}

func matchVersion(pattern *regexp.Regexp, ua string) string {
	m := pattern.FindStringSubmatch(ua)
	if len(m) < 2 {
		return "Unknown"
	}
	return m[1]
}

func underscoresToDots(version string) string {
	return strings.ReplaceAll(version, "_", ".")
}
