package listing

import "strings"

// Platform describes one marketplace target: its identity and the style
// directive handed to the text generator.
type Platform struct {
	ID    string
	Name  string
	Style string
}

var platformRegistry = map[string]Platform{
	"facebook": {
		ID:    "facebook",
		Name:  "Facebook Marketplace",
		Style: "Casual and friendly. Short paragraphs, a few tasteful emoji, lead with the vehicle's best selling points. Mention you respond quickly to messages.",
	},
	"craigslist": {
		ID:    "craigslist",
		Name:  "Craigslist",
		Style: "Plain text, no emoji, no hype. Straightforward factual description, specs up front, serious-inquiries-only tone.",
	},
	"offerup": {
		ID:    "offerup",
		Name:  "OfferUp",
		Style: "Brief and mobile-friendly. Short punchy sentences, key facts first, mention price firmness and availability for quick meetups.",
	},
	"ebay": {
		ID:    "ebay",
		Name:  "eBay Motors",
		Style: "Detailed and structured for national buyers. Thorough condition disclosure, shipping/pickup expectations, complete equipment rundown.",
	},
}

// ResolvePlatform looks up a platform by ID. Unknown IDs get a generic
// directive rather than an error so one typo cannot sink a request.
func ResolvePlatform(id string) Platform {
	key := strings.ToLower(strings.TrimSpace(id))
	if p, ok := platformRegistry[key]; ok {
		return p
	}
	return Platform{
		ID:    key,
		Name:  key,
		Style: "Clear, honest marketplace listing. Facts first, friendly closing line.",
	}
}
