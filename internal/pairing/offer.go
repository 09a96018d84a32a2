package pairing

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// OfferType is the discriminant every hub offer must carry.
const OfferType = "hub_offer"

// Link forms.
const (
	LegacyScheme = "menuhub"
	legacyHost   = "connect"
	deepLinkPath = "hub-connect"
	dataParam    = "data"
)

// Offer is what a hub publishes to let devices pair with it.
type Offer struct {
	Type         string `json:"type"`
	HubID        string `json:"hubId"`
	RestaurantID string `json:"restaurantId"`
	HubName      string `json:"hubName,omitempty"`

	// Endpoint is the hub's ws:// or wss:// listener for the plain socket
	// transport.
	Endpoint string `json:"endpoint,omitempty"`

	// SignalURL receives the device's session offer and returns the
	// hub's answer.
	SignalURL  string   `json:"signalUrl,omitempty"`
	ICEServers []string `json:"iceServers,omitempty"`

	// IssuedAt is unix millis; zero when the hub did not stamp the offer.
	IssuedAt int64 `json:"issuedAt,omitempty"`
}

// Issued returns IssuedAt as a time, zero if unset.
func (o Offer) Issued() time.Time {
	if o.IssuedAt == 0 {
		return time.Time{}
	}
	return time.UnixMilli(o.IssuedAt)
}

// Decode extracts, base64-decodes, parses and checks a scanned pairing
// payload.
func Decode(raw string) (Offer, error) {
	data, err := extract(strings.TrimSpace(raw))
	if err != nil {
		return Offer{}, err
	}

	body, err := decodeBase64(data)
	if err != nil {
		return Offer{}, err
	}

	var offer Offer
	if err := json.Unmarshal(body, &offer); err != nil {
		return Offer{}, fmt.Errorf("%w: payload is not a JSON object: %w", ErrInvalidFormat, err)
	}
	if offer.Type != OfferType {
		return Offer{}, fmt.Errorf("%w: type %q is not %q", ErrInvalidFormat, offer.Type, OfferType)
	}
	if offer.HubID == "" {
		return Offer{}, fmt.Errorf("%w: missing hubId", ErrInvalidFormat)
	}
	return offer, nil
}

// extract returns the base64 data of any of the three accepted forms.
func extract(raw string) (string, error) {
	if raw == "" {
		return "", fmt.Errorf("%w: empty payload", ErrInvalidFormat)
	}

	lower := strings.ToLower(raw)
	switch {
	case strings.HasPrefix(lower, "https://"):
		u, err := url.Parse(raw)
		if err != nil {
			return "", fmt.Errorf("%w: %w", ErrInvalidFormat, err)
		}
		segments := strings.Split(strings.Trim(u.Path, "/"), "/")
		if len(segments) != 3 || segments[0] != "r" || segments[1] == "" || segments[2] != deepLinkPath {
			return "", fmt.Errorf("%w: unexpected link path %q", ErrInvalidFormat, u.Path)
		}
		return dataFromQuery(u)

	case strings.HasPrefix(lower, LegacyScheme+"://"):
		u, err := url.Parse(raw)
		if err != nil {
			return "", fmt.Errorf("%w: %w", ErrInvalidFormat, err)
		}
		if u.Host != legacyHost {
			return "", fmt.Errorf("%w: unexpected link target %q", ErrInvalidFormat, u.Host)
		}
		return dataFromQuery(u)

	case strings.Contains(raw, "://"):
		return "", fmt.Errorf("%w: unsupported link scheme", ErrInvalidFormat)
	}

	return raw, nil
}

func dataFromQuery(u *url.URL) (string, error) {
	data := u.Query().Get(dataParam)
	if data == "" {
		return "", fmt.Errorf("%w: link has no %s parameter", ErrInvalidFormat, dataParam)
	}
	// Query decoding turns an unescaped '+' into a space.
	return strings.ReplaceAll(data, " ", "+"), nil
}

var encodings = []*base64.Encoding{
	base64.StdEncoding,
	base64.RawStdEncoding,
	base64.URLEncoding,
	base64.RawURLEncoding,
}

func decodeBase64(data string) ([]byte, error) {
	for _, enc := range encodings {
		if body, err := enc.DecodeString(data); err == nil {
			return body, nil
		}
	}
	return nil, fmt.Errorf("%w: payload is not base64", ErrInvalidFormat)
}

// EncodeBase64 returns the bare payload form of offer.
func EncodeBase64(offer Offer) (string, error) {
	if offer.Type == "" {
		offer.Type = OfferType
	}
	body, err := json.Marshal(offer)
	if err != nil {
		return "", fmt.Errorf("encoding offer: %w", err)
	}
	return base64.StdEncoding.EncodeToString(body), nil
}

// EncodeDeepLink returns https://<domain>/r/<slug>/hub-connect?data=<b64>.
func EncodeDeepLink(offer Offer, domain, slug string) (string, error) {
	if domain == "" || slug == "" {
		return "", fmt.Errorf("deep link needs a domain and a slug")
	}
	data, err := EncodeBase64(offer)
	if err != nil {
		return "", err
	}
	u := url.URL{
		Scheme:   "https",
		Host:     domain,
		Path:     "/r/" + slug + "/" + deepLinkPath,
		RawQuery: url.Values{dataParam: {data}}.Encode(),
	}
	return u.String(), nil
}

// EncodeLegacyLink returns menuhub://connect?data=<b64>.
func EncodeLegacyLink(offer Offer) (string, error) {
	data, err := EncodeBase64(offer)
	if err != nil {
		return "", err
	}
	return LegacyScheme + "://" + legacyHost + "?" + url.Values{dataParam: {data}}.Encode(), nil
}
