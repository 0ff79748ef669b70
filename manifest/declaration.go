package manifest

import "github.com/bgm-tracker/tracker/constant"

// RunAt controls when the userscript manager injects the script relative to page load.
type RunAt string

const (
	DocumentStart RunAt = "document-start"
	DocumentBody  RunAt = "document-body"
	DocumentEnd   RunAt = "document-end"
	DocumentIdle  RunAt = "document-idle"
	ContextMenu   RunAt = "context-menu"
)

// Valid reports whether r is one of the injection timings userscript managers understand.
func (r RunAt) Valid() bool {
	switch r {
	case DocumentStart, DocumentBody, DocumentEnd, DocumentIdle, ContextMenu:
		return true
	default:
		return false
	}
}

// Declaration holds every manifest field that is fixed in source.
// Version, author and source are not here: they come from the package descriptor.
type Declaration struct {
	Name      string
	Namespace string
	License   string
	Match     []string
	Require   []string
	Grant     []string
	Connect   []string
	RunAt     RunAt
}

// Tracker is the declaration of the Bgm.tv auto tracker userscript.
//
// GM_addStyle is listed twice on purpose: the declaration mirrors the published
// metadata, and Build collapses the repeat unless asked not to.
var Tracker = Declaration{
	Name:      "Bgm.tv auto tracker",
	Namespace: "https://trim21.me/",
	License:   "MIT",
	Match: []string{
		"https://www.bilibili.com/bangumi/play/*",
		"http*://www.iqiyi.com/*",
		"https://" + constant.TrackerDomain + "/oauth_callback*",
		"https://" + constant.TrackerDomain + "/userscript/options*",
	},
	Require: []string{
		"https://cdn.bootcss.com/jquery/3.3.1/jquery.min.js",
		"https://cdn.bootcss.com/axios/0.18.0/axios.js",
	},
	Grant: []string{
		"GM_addStyle",
		"GM_setValue",
		"GM_getValue",
		"GM_openInTab",
		"GM_addStyle",
		"GM_xmlhttpRequest",
		"unsafeWindow",
	},
	Connect: []string{
		"localhost",
		"api.bgm.tv",
		constant.TrackerDomain,
	},
	RunAt: DocumentEnd,
}
