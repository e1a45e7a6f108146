package openrtb_ext

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// BidderName refers to a core bidder id or an alias id.
type BidderName string

const (
	BidderMobilefuse BidderName = "mobilefuse"
	BidderRubicon    BidderName = "rubicon"
)

// CoreBidderNames returns a slice of all core bidders in registration order.
func CoreBidderNames() []BidderName {
	return []BidderName{
		BidderMobilefuse,
		BidderRubicon,
	}
}

var bidderNameLookup = func() map[string]BidderName {
	lookup := make(map[string]BidderName)
	for _, name := range CoreBidderNames() {
		lookup[strings.ToLower(string(name))] = name
	}
	return lookup
}()

// NormalizeBidderName returns the core bidder name for a case insensitive match.
func NormalizeBidderName(name string) (BidderName, bool) {
	bidderName, ok := bidderNameLookup[strings.ToLower(name)]
	return bidderName, ok
}

func (name BidderName) String() string {
	return string(name)
}

// The BidderParamValidator is used to enforce bidrequest.imp[i].ext.{anyBidder} values.
//
// This is treated differently from the other types because we rely on JSON-schemas to validate bidder params.
type BidderParamValidator interface {
	Validate(name BidderName, ext json.RawMessage) error
	// Schema returns the JSON schema used to perform validation.
	Schema(name BidderName) string
}

// NewBidderParamsValidator makes a BidderParamValidator, assuming all the necessary files exist in the filesystem.
// This will error if, for example, a Bidder gets added but no JSON schema is written for them.
func NewBidderParamsValidator(schemaDirectory string) (BidderParamValidator, error) {
	fileInfos, err := os.ReadDir(schemaDirectory)
	if err != nil {
		return nil, fmt.Errorf("Failed to read JSON schemas from directory %s. %v", schemaDirectory, err)
	}

	filesystem := http.Dir(schemaDirectory)
	schemaContents := make(map[BidderName]string, len(fileInfos))
	schemas := make(map[BidderName]*gojsonschema.Schema, len(fileInfos))
	for _, fileInfo := range fileInfos {
		bidderName, isValid := NormalizeBidderName(strings.TrimSuffix(fileInfo.Name(), ".json"))
		if !isValid {
			return nil, fmt.Errorf("File %s/%s does not match a valid BidderName.", schemaDirectory, fileInfo.Name())
		}

		schemaLoader := gojsonschema.NewReferenceLoaderFileSystem("file:///"+fileInfo.Name(), filesystem)
		loadedSchema, err := gojsonschema.NewSchema(schemaLoader)
		if err != nil {
			return nil, fmt.Errorf("Failed to load json schema at %s/%s: %v", schemaDirectory, fileInfo.Name(), err)
		}

		fileBytes, err := os.ReadFile(schemaDirectory + "/" + fileInfo.Name())
		if err != nil {
			return nil, fmt.Errorf("Failed to read file %s/%s: %v", schemaDirectory, fileInfo.Name(), err)
		}

		schemas[bidderName] = loadedSchema
		schemaContents[bidderName] = string(fileBytes)
	}

	for _, bidderName := range CoreBidderNames() {
		if _, ok := schemas[bidderName]; !ok {
			return nil, fmt.Errorf("Schema for bidder %s not found in %s", bidderName, schemaDirectory)
		}
	}

	return &bidderParamValidator{
		schemaContents: schemaContents,
		parsedSchemas:  schemas,
	}, nil
}

type bidderParamValidator struct {
	schemaContents map[BidderName]string
	parsedSchemas  map[BidderName]*gojsonschema.Schema
}

func (validator *bidderParamValidator) Validate(name BidderName, ext json.RawMessage) error {
	schema, ok := validator.parsedSchemas[name]
	if !ok {
		return fmt.Errorf("unknown bidder %s", name)
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(ext))
	if err != nil {
		return err
	}
	if !result.Valid() {
		messages := make([]string, 0, len(result.Errors()))
		for _, resultErr := range result.Errors() {
			messages = append(messages, resultErr.String())
		}
		return errors.New(strings.Join(messages, "; "))
	}
	return nil
}

func (validator *bidderParamValidator) Schema(name BidderName) string {
	return validator.schemaContents[name]
}

// Schemas returns every loaded schema keyed by bidder, sorted for stable output.
func Schemas(validator BidderParamValidator) map[string]json.RawMessage {
	names := CoreBidderNames()
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })

	out := make(map[string]json.RawMessage, len(names))
	for _, name := range names {
		if schema := validator.Schema(name); schema != "" {
			out[string(name)] = json.RawMessage(schema)
		}
	}
	return out
}
