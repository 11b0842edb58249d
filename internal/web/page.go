package web

import (
	"net/url"

	"confcal/internal/listing"
	"confcal/internal/model"
)

type navLink struct {
	Name   string
	Href   string
	Active bool
}

type pageData struct {
	TypeName         string
	Listing          listing.Listing
	Types            []navLink
	Countries        []navLink
	AllCountriesHref string
	AddConferenceURL string
	SortToggleHref   string
	PastToggleHref   string
	CFPToggleHref    string
	FeedHref         string
}

func (s *Server) pageData(l listing.Listing) pageData {
	query := func(past bool, mode model.SortMode) string {
		if enc := encodeQuery(past, mode); enc != "" {
			return "?" + enc
		}
		return ""
	}
	here := func(country string) string {
		return pagePath(l.ShowCFP, l.Type, country) + query(l.ShowPast, l.SortMode)
	}

	d := pageData{
		TypeName:         s.cfg.TypeName(l.Type),
		Listing:          l,
		AllCountriesHref: here(""),
		AddConferenceURL: s.cfg.AddConferenceURL,
		SortToggleHref:   pagePath(l.ShowCFP, l.Type, l.Country) + query(l.ShowPast, l.SortMode.Toggle()),
		PastToggleHref:   pagePath(l.ShowCFP, l.Type, l.Country) + query(!l.ShowPast, l.SortMode),
		CFPToggleHref:    pagePath(!l.ShowCFP, l.Type, l.Country) + query(l.ShowPast, model.SortByStartDate),
	}

	feed := url.Values{}
	feed.Set("type", l.Type)
	if l.Country != "" {
		feed.Set("country", l.Country)
	}
	if l.ShowCFP {
		feed.Set("cfp", "1")
	}
	d.FeedHref = "/api/conferences.ics?" + feed.Encode()

	for _, t := range s.cfg.Types {
		d.Types = append(d.Types, navLink{
			Name:   t.Name,
			Href:   pagePath(l.ShowCFP, t.Key, ""),
			Active: t.Key == l.Type,
		})
	}
	for _, c := range l.Countries {
		d.Countries = append(d.Countries, navLink{
			Name:   c,
			Href:   here(c),
			Active: c == l.Country,
		})
	}
	return d
}

// pagePath builds /{type}[/{country}] or /cfp/{type}[/{country}].
func pagePath(cfp bool, typ, country string) string {
	p := "/" + url.PathEscape(typ)
	if cfp {
		p = "/cfp" + p
	}
	if country != "" {
		p += "/" + url.PathEscape(country)
	}
	return p
}

func encodeQuery(past bool, mode model.SortMode) string {
	v := url.Values{}
	if past {
		v.Set("past", "1")
	}
	if mode != model.SortByStartDate {
		v.Set("sort", mode.String())
	}
	return v.Encode()
}
