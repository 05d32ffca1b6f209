package client

import "math/rand"

// headerProfile is one desktop-browser identity the client presents. The
// platform fingerprints API callers, so these stay in lockstep with real
// browser releases.
type headerProfile struct {
	UserAgent       string
	SecChUa         string
	SecChUaMobile   string
	SecChUaPlatform string
}

var browserProfiles = []headerProfile{
	{
		UserAgent:       "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
		SecChUa:         `"Google Chrome";v="131", "Chromium";v="131", "Not_A Brand";v="24"`,
		SecChUaMobile:   "?0",
		SecChUaPlatform: `"macOS"`,
	},
	{
		UserAgent:       "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
		SecChUa:         `"Google Chrome";v="131", "Chromium";v="131", "Not_A Brand";v="24"`,
		SecChUaMobile:   "?0",
		SecChUaPlatform: `"Windows"`,
	},
	{
		UserAgent:       "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/18.2 Safari/605.1.15",
		SecChUa:         "",
		SecChUaMobile:   "",
		SecChUaPlatform: "",
	},
}

func pickProfile() headerProfile {
	return browserProfiles[rand.Intn(len(browserProfiles))]
}

// baseHeaders are the static headers every API request carries alongside
// the cookie and the signed pair.
func (e *Executor) baseHeaders() map[string]string {
	h := map[string]string{
		"accept":           "*/*",
		"accept-language":  "zh-CN,zh;q=0.9",
		"priority":         "u=1, i",
		"user-agent":       e.profile.UserAgent,
		"x-api-version":    "3.0.91",
		"x-app-za":         "OS=Web",
		"x-requested-with": "fetch",
		"x-zse-93":         "101_3_3.0",
	}
	if e.profile.SecChUa != "" {
		h["sec-ch-ua"] = e.profile.SecChUa
		h["sec-ch-ua-mobile"] = e.profile.SecChUaMobile
		h["sec-ch-ua-platform"] = e.profile.SecChUaPlatform
	}
	return h
}
