package openrtb_ext

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const schemaDirectory = "../static/bidder-params"

func TestNormalizeBidderName(t *testing.T) {
	testCases := []struct {
		description  string
		name         string
		expectedName BidderName
		expectedOK   bool
	}{
		{description: "exact", name: "mobilefuse", expectedName: BidderMobilefuse, expectedOK: true},
		{description: "case-insensitive", name: "RuBiCoN", expectedName: BidderRubicon, expectedOK: true},
		{description: "unknown", name: "appnexus", expectedName: "", expectedOK: false},
	}

	for _, test := range testCases {
		name, ok := NormalizeBidderName(test.name)
		assert.Equal(t, test.expectedName, name, test.description)
		assert.Equal(t, test.expectedOK, ok, test.description)
	}
}

func TestBidderParamValidator(t *testing.T) {
	validator, err := NewBidderParamsValidator(schemaDirectory)
	require.NoError(t, err)

	testCases := []struct {
		description string
		bidder      BidderName
		params      string
		expectValid bool
	}{
		{
			description: "mobilefuse-valid",
			bidder:      BidderMobilefuse,
			params:      `{"placement_id":123,"pub_id":456,"tagid_src":"ext"}`,
			expectValid: true,
		},
		{
			description: "mobilefuse-extra-fields-ignored",
			bidder:      BidderMobilefuse,
			params:      `{"placement_id":123,"pub_id":456,"unknown":true}`,
			expectValid: true,
		},
		{
			description: "mobilefuse-missing-publisher",
			bidder:      BidderMobilefuse,
			params:      `{"placement_id":123}`,
			expectValid: false,
		},
		{
			description: "mobilefuse-wrong-type",
			bidder:      BidderMobilefuse,
			params:      `{"placement_id":"abc","pub_id":456}`,
			expectValid: false,
		},
		{
			description: "rubicon-valid",
			bidder:      BidderRubicon,
			params:      `{"accountId":1001,"siteId":113932,"zoneId":535510}`,
			expectValid: true,
		},
		{
			description: "rubicon-missing-zone",
			bidder:      BidderRubicon,
			params:      `{"accountId":1001,"siteId":113932}`,
			expectValid: false,
		},
	}

	for _, test := range testCases {
		err := validator.Validate(test.bidder, json.RawMessage(test.params))
		if test.expectValid {
			assert.NoError(t, err, test.description)
		} else {
			assert.Error(t, err, test.description)
		}
	}
}

func TestBidderParamValidatorUnknownBidder(t *testing.T) {
	validator, err := NewBidderParamsValidator(schemaDirectory)
	require.NoError(t, err)

	assert.EqualError(t, validator.Validate("unknown", json.RawMessage(`{}`)), "unknown bidder unknown")
}

func TestBidderParamValidatorMissingDirectory(t *testing.T) {
	_, err := NewBidderParamsValidator("does/not/exist")
	assert.Error(t, err)
}

func TestSchemas(t *testing.T) {
	validator, err := NewBidderParamsValidator(schemaDirectory)
	require.NoError(t, err)

	schemas := Schemas(validator)
	assert.Len(t, schemas, 2)
	assert.Contains(t, string(schemas["mobilefuse"]), "MobileFuse Adapter Params")
	assert.Contains(t, string(schemas["rubicon"]), "Rubicon Adapter Params")
}

func TestParseBidType(t *testing.T) {
	bidType, err := ParseBidType("video")
	assert.NoError(t, err)
	assert.Equal(t, BidTypeVideo, bidType)

	_, err = ParseBidType("other")
	assert.EqualError(t, err, "invalid BidType: other")
}
