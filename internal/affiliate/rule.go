package affiliate

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Rule describes how one store's outbound links are tagged. Exactly one of
// Redirect, Query or Param is used, in that order of precedence.
type Rule struct {
	Enabled bool   `yaml:"enabled"`
	Code    string `yaml:"code"`
	// Param appends ?Param=Code (or &Param=Code).
	Param string `yaml:"param,omitempty"`
	// Query appends a query fragment template such as "tag={code}&src=pf".
	Query string `yaml:"query,omitempty"`
	// Redirect replaces the link with a network redirect template using
	// {code}, {url} and {affiliate_id}.
	Redirect    string `yaml:"redirect,omitempty"`
	AffiliateID string `yaml:"affiliate_id,omitempty"`
}

// Active reports whether the rule should rewrite links.
func (r Rule) Active() bool {
	return r.Enabled && r.Code != ""
}

var errNoPattern = errors.New("affiliate rule has no pattern")

func (r Rule) apply(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("not an absolute url: %q", raw)
	}

	switch {
	case r.Redirect != "":
		if strings.Contains(r.Redirect, "{affiliate_id}") && r.AffiliateID == "" {
			return "", errors.New("redirect needs affiliate_id")
		}
		out := strings.NewReplacer(
			"{code}", url.QueryEscape(r.Code),
			"{url}", url.QueryEscape(raw),
			"{affiliate_id}", url.QueryEscape(r.AffiliateID),
		).Replace(r.Redirect)
		return out, nil
	case r.Query != "":
		frag := strings.TrimLeft(strings.ReplaceAll(r.Query, "{code}", url.QueryEscape(r.Code)), "?&")
		return appendQuery(raw, frag), nil
	case r.Param != "":
		return appendQuery(raw, url.QueryEscape(r.Param)+"="+url.QueryEscape(r.Code)), nil
	default:
		return "", errNoPattern
	}
}

// appendQuery adds frag to the query string of raw, keeping any #fragment
// at the end.
func appendQuery(raw, frag string) string {
	base, hash := raw, ""
	if i := strings.Index(raw, "#"); i >= 0 {
		base, hash = raw[:i], raw[i:]
	}
	switch {
	case !strings.Contains(base, "?"):
		base += "?"
	case !strings.HasSuffix(base, "?") && !strings.HasSuffix(base, "&"):
		base += "&"
	}
	return base + frag + hash
}

// ruleFromPattern converts the backend's url_pattern ("?tag={code}",
// "ref={code}", or a redirect template containing {url}).
func ruleFromPattern(pattern, code string) Rule {
	r := Rule{Enabled: true, Code: code}
	switch {
	case strings.Contains(pattern, "{url}"):
		r.Redirect = pattern
	case pattern != "":
		r.Query = pattern
	}
	return r
}

// DefaultRules are the stores the storefront knows how to tag. All start
// disabled; enable them in the integrations file or through the backend.
func DefaultRules() map[string]Rule {
	return map[string]Rule{
		"Amazon":     {Param: "tag"},
		"AliExpress": {Param: "aff_trace_key"},
		"Éxito":      {Param: "affiliate_id"},
		"Homecenter": {Param: "ref"},
		"Falabella":  {Param: "aff"},
		"AWIN": {
			Redirect: "https://www.awin1.com/cread.php?awinmid={code}&awinaffid={affiliate_id}&clickref=&ued={url}",
		},
	}
}
