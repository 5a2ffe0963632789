// Package scraper reads X profile pages through a browser session.
//
// A Scraper owns one browser.Session and drives it for two operations:
//
//   - ScrapeProfile reads the profile header into a models.ProfileRecord and
//     opportunistically downloads the avatar and banner.
//   - ScrapeTweets scrolls the timeline with a scroll.Controller, keeping only
//     original posts by the profile owner. Reposts, replies, short texts and
//     repeated texts are dropped. Accepted posts are language-normalized and
//     their media is handed to the download pool one scan at a time.
//
// Usage:
//
//	cfg, err := config.Load("", nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	s, err := scraper.Open(ctx, cfg, logger.GetLogger())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer s.Close()
//
//	profile, err := s.ScrapeProfile(ctx, "janedoe").Unwrap()
//	posts, summary, err := s.ScrapeTweets(ctx, "janedoe", 20)
//
// A profile that states it does not exist is reported as not found, which is
// distinct from a profile with zero posts. Stalling before the requested count
// is a normal outcome; the summary records which bound ended the run.
package scraper
