package ccond

import (
	"crypto/rsa"
	"errors"

	"xdao.co/ccond/compliance"
	"xdao.co/ccond/model"
)

// Codec parses and validates conditions and fulfillments under a fixed set
// of Options. A Codec is safe for concurrent use.
type Codec struct {
	opts Options
}

func NewCodec(opts Options) *Codec {
	return &Codec{opts: opts.withDefaults()}
}

// decoder returns per-call decoding state.
func (c *Codec) decoder() *decoder { return newDecoder(c.opts) }

// ParseConditionURI parses the ni: form, or the legacy cc:1: form in
// Permissive mode.
func (c *Codec) ParseConditionURI(uri string) (Condition, error) {
	return parseConditionURI(uri, c.decoder())
}

// ParseConditionBinary parses a DER-encoded condition.
func (c *Codec) ParseConditionBinary(data []byte) (Condition, error) {
	return parseConditionBinary(data, c.decoder())
}

// ParseFulfillmentURI parses a cf:1: fulfillment URI.
func (c *Codec) ParseFulfillmentURI(uri string) (Fulfillment, error) {
	return parseFulfillmentURI(uri, c.decoder())
}

// ParseFulfillmentBinary parses a DER-encoded fulfillment.
func (c *Codec) ParseFulfillmentBinary(data []byte) (Fulfillment, error) {
	return parseFulfillmentBinary(data, c.decoder())
}

// FromJSON builds a fulfillment from its JSON convenience form.
func (c *Codec) FromJSON(data []byte) (Fulfillment, error) {
	return parseJSON(data, c.decoder())
}

// SignRsa returns an RSA-SHA-256 fulfillment of message under priv. The PSS
// salt is read from Options.Rand.
func (c *Codec) SignRsa(message []byte, priv *rsa.PrivateKey) (*RsaSha256, error) {
	f := &RsaSha256{}
	if err := f.Sign(message, priv, c.opts.Rand); err != nil {
		return nil, err
	}
	return f, nil
}

// ValidateCondition parses uri and checks it is a well-formed condition.
func (c *Codec) ValidateCondition(uri string) error {
	_, err := c.ParseConditionURI(uri)
	return err
}

// ValidateFulfillment checks that the fulfillment satisfies the condition
// and proves message.
func (c *Codec) ValidateFulfillment(fulfillmentURI, conditionURI string, message []byte) error {
	f, err := c.ParseFulfillmentURI(fulfillmentURI)
	if err != nil {
		return err
	}
	want, err := c.ParseConditionURI(conditionURI)
	if err != nil {
		return err
	}
	return Verify(f, want, message)
}

// FulfillmentToCondition returns the condition URI derived from a
// fulfillment URI.
func (c *Codec) FulfillmentToCondition(fulfillmentURI string) (string, error) {
	f, err := c.ParseFulfillmentURI(fulfillmentURI)
	if err != nil {
		return "", err
	}
	cond, err := f.Condition()
	if err != nil {
		return "", err
	}
	return cond.URI(), nil
}

// CheckFulfillment is ValidateFulfillment in result-object form.
func (c *Codec) CheckFulfillment(fulfillmentURI, conditionURI string, message []byte) model.Result {
	return ResultOf(c.ValidateFulfillment(fulfillmentURI, conditionURI, message))
}

// Check answers a boundary validation request. A Compliance set on the
// request overrides the codec's mode.
func (c *Codec) Check(req model.ValidationRequest) model.Result {
	if req.Fulfillment == "" || req.Condition == "" {
		return model.Invalid(model.NewError(model.ErrInvalidRequest, "fulfillment and condition are required"))
	}
	codec := c
	if req.Compliance != "" {
		mode, err := compliance.ParseMode(string(req.Compliance))
		if err != nil {
			return model.Invalid(model.NewError(model.ErrInvalidRequest, err.Error()))
		}
		if mode != c.opts.Mode {
			opts := c.opts
			opts.Mode = mode
			codec = NewCodec(opts)
		}
	}
	return codec.CheckFulfillment(req.Fulfillment, req.Condition, req.Message)
}

// Verify checks that f derives want and proves message.
func Verify(f Fulfillment, want Condition, message []byte) error {
	got, err := f.Condition()
	if err != nil {
		return err
	}
	if !got.Equal(want) {
		return newError(KindValidation, "CC-VAL-001", "fulfillment does not match condition")
	}
	return f.Validate(message)
}

var kindCodes = map[Kind]model.ErrorCode{
	KindPrefix:          model.ErrPrefix,
	KindParse:           model.ErrParse,
	KindUnderflow:       model.ErrUnderflow,
	KindUnsupportedType: model.ErrUnsupportedType,
	KindMissingData:     model.ErrMissingData,
	KindValidation:      model.ErrValidation,
	KindInternal:        model.ErrInternal,
}

// ResultOf converts an error from this package into a result object.
// A nil error is a valid result.
func ResultOf(err error) model.Result {
	if err == nil {
		return model.Result{Valid: true}
	}
	code := model.ErrInternal
	var e *Error
	if errors.As(err, &e) {
		if c, ok := kindCodes[e.Kind]; ok {
			code = c
		}
	}
	return model.Invalid(model.NewError(code, err.Error()))
}

var defaultCodec = NewCodec(Options{})

// ParseConditionURI parses uri with the default Permissive codec.
func ParseConditionURI(uri string) (Condition, error) { return defaultCodec.ParseConditionURI(uri) }

func ParseConditionBinary(data []byte) (Condition, error) {
	return defaultCodec.ParseConditionBinary(data)
}

func ParseFulfillmentURI(uri string) (Fulfillment, error) {
	return defaultCodec.ParseFulfillmentURI(uri)
}

func ParseFulfillmentBinary(data []byte) (Fulfillment, error) {
	return defaultCodec.ParseFulfillmentBinary(data)
}

func FromJSON(data []byte) (Fulfillment, error) { return defaultCodec.FromJSON(data) }

func ValidateCondition(uri string) error { return defaultCodec.ValidateCondition(uri) }

func ValidateFulfillment(fulfillmentURI, conditionURI string, message []byte) error {
	return defaultCodec.ValidateFulfillment(fulfillmentURI, conditionURI, message)
}

func FulfillmentToCondition(fulfillmentURI string) (string, error) {
	return defaultCodec.FulfillmentToCondition(fulfillmentURI)
}

func CheckFulfillment(fulfillmentURI, conditionURI string, message []byte) model.Result {
	return defaultCodec.CheckFulfillment(fulfillmentURI, conditionURI, message)
}

func Check(req model.ValidationRequest) model.Result { return defaultCodec.Check(req) }
