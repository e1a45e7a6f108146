package adapters

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/prebid/openrtb/v20/openrtb2"
	"github.com/prebid/prebid-mediation/errortypes"
	"github.com/prebid/prebid-mediation/openrtb_ext"
	"golang.org/x/text/currency"
)

// DefaultCurrency is assumed for any bid response which doesn't name one.
const DefaultCurrency = "USD"

func CheckResponseStatusCodeForErrors(response *ResponseData) error {
	if response.StatusCode == http.StatusBadRequest {
		return &errortypes.BadInput{
			Message: fmt.Sprintf("Unexpected status code: %d. Run with request.debug = 1 for more info", response.StatusCode),
		}
	}

	if response.StatusCode != http.StatusOK {
		return &errortypes.BadServerResponse{
			Message: fmt.Sprintf("Unexpected status code: %d. Run with request.debug = 1 for more info", response.StatusCode),
		}
	}

	return nil
}

func IsResponseStatusCodeNoContent(response *ResponseData) bool {
	return response.StatusCode == http.StatusNoContent
}

// GetMediaTypeForImp infers a bid's media type from the outbound imp it answers. An imp carrying
// video yields video; anything else, including an impID matching no imp, yields banner.
func GetMediaTypeForImp(impID string, imps []openrtb2.Imp) openrtb_ext.BidType {
	for _, imp := range imps {
		if imp.ID == impID {
			if imp.Video != nil {
				return openrtb_ext.BidTypeVideo
			}
			return openrtb_ext.BidTypeBanner
		}
	}
	return openrtb_ext.BidTypeBanner
}

// NormalizeCurrency returns the upper-cased ISO 4217 code for cur, falling back to fallback when
// cur is empty or not a valid currency.
func NormalizeCurrency(cur, fallback string) string {
	if unit, err := currency.ParseISO(strings.ToUpper(strings.TrimSpace(cur))); err == nil {
		return unit.String()
	}
	if fallback == "" {
		return DefaultCurrency
	}
	return fallback
}
