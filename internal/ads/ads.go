package ads

// PlaceholderClient is the client id shipped in the sample config. Ads stay
// off until it is replaced.
const PlaceholderClient = "ca-pub-XXXXXXXXXXXXXXXX"

const scriptBase = "https://pagead2.googlesyndication.com/pagead/js/adsbygoogle.js"

// Slots holds the AdSense ad unit ids per page position.
type Slots struct {
	Header         string `yaml:"header"`
	Sidebar        string `yaml:"sidebar"`
	BetweenResults string `yaml:"between_results"`
	Footer         string `yaml:"footer"`
}

// Config is the `ads` section of the integrations file.
type Config struct {
	Enabled         bool     `yaml:"enabled"`
	Client          string   `yaml:"client"`
	Slots           Slots    `yaml:"slots"`
	DisabledDomains []string `yaml:"disabled_domains"`
	// BetweenResultsEvery inserts the between-results unit after every N
	// product cards. Zero disables it.
	BetweenResultsEvery int `yaml:"between_results_every"`
}

// Unit is one <ins class="adsbygoogle"> element.
type Unit struct {
	ContainerID         string
	Slot                string
	Format              string
	FullWidthResponsive bool
}

// View is what the page layout needs to render ads.
type View struct {
	Enabled bool
	// Placeholder is set when ads are off; the layout then shows dev
	// placeholders in the ad containers.
	Placeholder    bool
	Client         string
	ScriptURL      string
	Header         Unit
	Sidebar        Unit
	Footer         Unit
	BetweenResults Unit
	Every          int
}

// ShowAfter reports whether the between-results unit goes after the card at
// zero-based index i of n cards.
func (v View) ShowAfter(i, n int) bool {
	if !v.Enabled || v.Every <= 0 {
		return false
	}
	return (i+1)%v.Every == 0 && i+1 < n
}
