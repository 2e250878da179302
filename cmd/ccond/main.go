package main

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"xdao.co/ccond/ccond"
	"xdao.co/ccond/cidutil"
	"xdao.co/ccond/compliance"
	"xdao.co/ccond/keys"
	"xdao.co/ccond/model"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		printUsage(errOut)
		return 2
	}

	switch args[0] {
	case "condition":
		return cmdCondition(args[1:], out, errOut)
	case "validate":
		return cmdValidate(args[1:], out, errOut)
	case "validate-condition":
		return cmdValidateCondition(args[1:], out, errOut)
	case "preimage":
		return cmdPreimage(args[1:], out, errOut)
	case "ed25519":
		return cmdEd25519(args[1:], out, errOut)
	case "rsa":
		return cmdRSA(args[1:], out, errOut)
	case "inspect":
		return cmdInspect(args[1:], out, errOut)
	case "help", "-h", "--help":
		printUsage(out)
		return 0
	default:
		fmt.Fprintf(errOut, "unknown command: %s\n\n", args[0])
		printUsage(errOut)
		return 2
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "ccond: crypto-conditions CLI")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  ccond condition [--legacy] [--cid] <fulfillment-uri>")
	fmt.Fprintln(w, "  ccond validate --fulfillment <uri> --condition <uri> [message flags] [--mode permissive|strict]")
	fmt.Fprintln(w, "  ccond validate --request <request.json>")
	fmt.Fprintln(w, "  ccond validate-condition [--mode permissive|strict] <condition-uri>")
	fmt.Fprintln(w, "  ccond preimage [--hex] [--json] <preimage>")
	fmt.Fprintln(w, "  ccond ed25519 (--seed-hex <64hex> | --seed-file <path>) [--label <l>] [message flags] [--json]")
	fmt.Fprintln(w, "  ccond rsa --key <pem-file> [message flags] [--json]")
	fmt.Fprintln(w, "  ccond inspect [--mode permissive|strict] <condition-uri | fulfillment-uri>")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Message flags:")
	fmt.Fprintln(w, "  --message <text> | --message-hex <hex> | --message-file <path>  (default: empty message)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Notes:")
	fmt.Fprintln(w, "  - signing commands print the fulfillment URI, then the condition URI")
	fmt.Fprintln(w, "  - validate prints a JSON result and exits 1 when the fulfillment is invalid")
	fmt.Fprintln(w, "  - every command accepts -v for debug logging on stderr")
}

// commonFlags are shared by every subcommand. Signing commands decode no
// input, so they register only -v.
type commonFlags struct {
	mode    string
	verbose bool
}

func (c *commonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&c.mode, "mode", "permissive", "Compliance mode: permissive|strict")
	c.registerVerbose(fs)
}

func (c *commonFlags) registerVerbose(fs *flag.FlagSet) {
	fs.BoolVar(&c.verbose, "v", false, "Log debug output to stderr")
}

func (c *commonFlags) codec() (*ccond.Codec, error) {
	mode, err := compliance.ParseMode(c.mode)
	if err != nil {
		return nil, err
	}
	return ccond.NewCodec(ccond.Options{Mode: mode}), nil
}

func (c *commonFlags) logger(errOut io.Writer) *slog.Logger {
	if !c.verbose {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return slog.New(slog.NewTextHandler(errOut, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

type messageFlags struct {
	text    string
	hexText string
	file    string
}

func (m *messageFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&m.text, "message", "", "Message text")
	fs.StringVar(&m.hexText, "message-hex", "", "Message bytes in hex")
	fs.StringVar(&m.file, "message-file", "", "Read message bytes from file")
}

func (m *messageFlags) read() ([]byte, error) {
	set := 0
	for _, v := range []string{m.text, m.hexText, m.file} {
		if v != "" {
			set++
		}
	}
	if set > 1 {
		return nil, errors.New("use only one of --message, --message-hex, --message-file")
	}
	switch {
	case m.hexText != "":
		return hex.DecodeString(m.hexText)
	case m.file != "":
		return os.ReadFile(m.file)
	}
	return []byte(m.text), nil
}

func cmdCondition(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("condition", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var common commonFlags
	common.register(fs)
	var legacy, withCID bool
	fs.BoolVar(&legacy, "legacy", false, "Print the legacy cc:1: form")
	fs.BoolVar(&withCID, "cid", false, "Print the condition CID")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: ccond condition [--legacy] [--cid] <fulfillment-uri>")
		return 2
	}
	c, err := common.codec()
	if err != nil {
		fmt.Fprintf(errOut, "%v\n", err)
		return 2
	}
	log := common.logger(errOut)

	f, err := c.ParseFulfillmentURI(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(errOut, "invalid fulfillment: %v\n", err)
		return 1
	}
	cond, err := f.Condition()
	if err != nil {
		fmt.Fprintf(errOut, "derive condition: %v\n", err)
		return 1
	}
	log.Debug("derived condition", "type", cond.Type().Name(), "cost", cond.Cost())

	if legacy {
		uri, err := cond.LegacyURI()
		if err != nil {
			fmt.Fprintf(errOut, "legacy condition: %v\n", err)
			return 1
		}
		_, _ = fmt.Fprintln(out, uri)
	} else {
		_, _ = fmt.Fprintln(out, cond.URI())
	}
	if withCID {
		id, err := cond.CID()
		if err != nil {
			fmt.Fprintf(errOut, "condition cid: %v\n", err)
			return 1
		}
		_, _ = fmt.Fprintln(out, id)
	}
	return 0
}

func cmdValidate(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("validate", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var common commonFlags
	common.register(fs)
	var msg messageFlags
	msg.register(fs)
	var fulfillmentURI, conditionURI, requestPath string
	fs.StringVar(&fulfillmentURI, "fulfillment", "", "Fulfillment URI (cf:1:...)")
	fs.StringVar(&conditionURI, "condition", "", "Condition URI (ni:///sha-256;...)")
	fs.StringVar(&requestPath, "request", "", "Read a JSON validation request from file")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if requestPath == "" && (fulfillmentURI == "" || conditionURI == "") {
		fmt.Fprintln(errOut, "usage: ccond validate (--fulfillment <uri> --condition <uri> [message flags] | --request <file>)")
		return 2
	}
	c, err := common.codec()
	if err != nil {
		fmt.Fprintf(errOut, "%v\n", err)
		return 2
	}
	log := common.logger(errOut)

	var res model.Result
	if requestPath != "" {
		req, err := readRequest(requestPath)
		if err != nil {
			res = model.Invalid(model.NewError(model.ErrInvalidRequest, err.Error()))
		} else {
			log.Debug("validating request", "path", requestPath, "message_bytes", len(req.Message), "compliance", req.Compliance)
			res = c.Check(req)
		}
	} else {
		message, err := msg.read()
		if err != nil {
			res = model.Invalid(model.NewError(model.ErrInvalidRequest, err.Error()))
		} else {
			log.Debug("validating", "message_bytes", len(message), "mode", common.mode)
			res = c.CheckFulfillment(fulfillmentURI, conditionURI, message)
		}
	}
	if err := writeJSON(out, res); err != nil {
		fmt.Fprintf(errOut, "write result: %v\n", err)
		return 1
	}
	if !res.Valid {
		return 1
	}
	return 0
}

func readRequest(path string) (model.ValidationRequest, error) {
	var req model.ValidationRequest
	b, err := os.ReadFile(path)
	if err != nil {
		return req, err
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return req, fmt.Errorf("decode request: %w", err)
	}
	return req, nil
}

func cmdValidateCondition(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("validate-condition", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var common commonFlags
	common.register(fs)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: ccond validate-condition <condition-uri>")
		return 2
	}
	c, err := common.codec()
	if err != nil {
		fmt.Fprintf(errOut, "%v\n", err)
		return 2
	}
	if err := c.ValidateCondition(fs.Arg(0)); err != nil {
		fmt.Fprintf(errOut, "invalid condition (%s): %v\n", ccond.RuleID(err), err)
		return 1
	}
	_, _ = fmt.Fprintln(out, "ok")
	return 0
}

func cmdPreimage(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("preimage", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var common commonFlags
	common.registerVerbose(fs)
	var isHex, asJSON bool
	fs.BoolVar(&isHex, "hex", false, "Preimage argument is hex")
	fs.BoolVar(&asJSON, "json", false, "Print the fulfillment as JSON instead of URIs")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() > 1 {
		fmt.Fprintln(errOut, "usage: ccond preimage [--hex] [--json] <preimage>")
		return 2
	}
	preimage := []byte(fs.Arg(0))
	if isHex {
		b, err := hex.DecodeString(fs.Arg(0))
		if err != nil {
			fmt.Fprintf(errOut, "invalid hex preimage: %v\n", err)
			return 2
		}
		preimage = b
	}
	return emit(ccond.NewPreimageSha256(preimage), asJSON, out, errOut, common.logger(errOut))
}

func cmdEd25519(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("ed25519", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var common commonFlags
	common.registerVerbose(fs)
	var msg messageFlags
	msg.register(fs)
	var seedHex, seedFile, label string
	var asJSON bool
	fs.StringVar(&seedHex, "seed-hex", "", "Ed25519 seed (32 bytes hex)")
	fs.StringVar(&seedFile, "seed-file", "", "File holding a hex Ed25519 seed")
	fs.StringVar(&label, "label", "", "Derive a labelled seed from the root seed")
	fs.BoolVar(&asJSON, "json", false, "Print the fulfillment as JSON instead of URIs")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if (seedHex == "") == (seedFile == "") {
		fmt.Fprintln(errOut, "usage: ccond ed25519 (--seed-hex <64hex> | --seed-file <path>) [--label <l>] [message flags]")
		return 2
	}
	log := common.logger(errOut)

	var seed []byte
	var err error
	if seedHex != "" {
		seed, err = keys.ParseSeedHex(seedHex)
	} else {
		seed, err = keys.LoadSeedFile(seedFile)
	}
	if err != nil {
		fmt.Fprintf(errOut, "load seed: %v\n", err)
		return 1
	}
	if label != "" {
		if seed, err = keys.DeriveSeed(seed, label); err != nil {
			fmt.Fprintf(errOut, "derive seed: %v\n", err)
			return 1
		}
		log.Debug("derived labelled seed", "label", label)
	}
	priv, err := keys.Ed25519FromSeed(seed)
	if err != nil {
		fmt.Fprintf(errOut, "ed25519 key: %v\n", err)
		return 1
	}
	message, err := msg.read()
	if err != nil {
		fmt.Fprintf(errOut, "read message: %v\n", err)
		return 2
	}

	f := &ccond.Ed25519Sha256{}
	if err := f.Sign(message, priv); err != nil {
		fmt.Fprintf(errOut, "sign: %v\n", err)
		return 1
	}
	return emit(f, asJSON, out, errOut, log)
}

func cmdRSA(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("rsa", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var common commonFlags
	common.registerVerbose(fs)
	var msg messageFlags
	msg.register(fs)
	var keyFile string
	var asJSON bool
	fs.StringVar(&keyFile, "key", "", "PEM RSA private key (e=65537)")
	fs.BoolVar(&asJSON, "json", false, "Print the fulfillment as JSON instead of URIs")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if keyFile == "" {
		fmt.Fprintln(errOut, "usage: ccond rsa --key <pem-file> [message flags]")
		return 2
	}
	log := common.logger(errOut)

	priv, err := keys.LoadRSAPrivateKeyFile(keyFile)
	if err != nil {
		fmt.Fprintf(errOut, "load rsa key: %v\n", err)
		return 1
	}
	message, err := msg.read()
	if err != nil {
		fmt.Fprintf(errOut, "read message: %v\n", err)
		return 2
	}
	log.Debug("signing", "modulus_bits", priv.N.BitLen())

	f, err := ccond.NewCodec(ccond.Options{}).SignRsa(message, priv)
	if err != nil {
		fmt.Fprintf(errOut, "sign: %v\n", err)
		return 1
	}
	return emit(f, asJSON, out, errOut, log)
}

func cmdInspect(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("inspect", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var common commonFlags
	common.register(fs)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: ccond inspect <condition-uri | fulfillment-uri>")
		return 2
	}
	c, err := common.codec()
	if err != nil {
		fmt.Fprintf(errOut, "%v\n", err)
		return 2
	}
	log := common.logger(errOut)

	uri := fs.Arg(0)
	var cond ccond.Condition
	var fulfillmentCID string
	if f, ferr := c.ParseFulfillmentURI(uri); ferr == nil {
		log.Debug("input is a fulfillment", "type", f.Type().Name())
		cond, err = f.Condition()
		if err == nil {
			var der []byte
			if der, err = ccond.MarshalFulfillment(f); err == nil {
				fulfillmentCID = cidutil.CIDv1RawSHA256(der)
			}
		}
	} else if ccond.IsKind(ferr, ccond.KindPrefix) {
		cond, err = c.ParseConditionURI(uri)
	} else {
		err = ferr
	}
	if err != nil {
		fmt.Fprintf(errOut, "inspect: %v\n", err)
		return 1
	}

	info, err := conditionInfo(cond)
	if err != nil {
		fmt.Fprintf(errOut, "inspect: %v\n", err)
		return 1
	}
	info.FulfillmentCID = fulfillmentCID
	if err := writeJSON(out, info); err != nil {
		fmt.Fprintf(errOut, "write: %v\n", err)
		return 1
	}
	return 0
}

func conditionInfo(cond ccond.Condition) (model.ConditionInfo, error) {
	info := model.ConditionInfo{
		URI:         cond.URI(),
		Type:        cond.Type().Name(),
		Fingerprint: hex.EncodeToString(cond.Fingerprint()),
		Cost:        cond.Cost(),
	}
	for _, t := range cond.Subtypes().Types() {
		info.Subtypes = append(info.Subtypes, t.Name())
	}
	legacy, err := cond.LegacyURI()
	if err != nil {
		return info, err
	}
	info.LegacyURI = legacy
	id, err := cond.CID()
	if err != nil {
		return info, err
	}
	info.CID = id.String()
	return info, nil
}

// emit prints a freshly built fulfillment and its condition.
func emit(f ccond.Fulfillment, asJSON bool, out, errOut io.Writer, log *slog.Logger) int {
	cond, err := f.Condition()
	if err != nil {
		fmt.Fprintf(errOut, "derive condition: %v\n", err)
		return 1
	}
	log.Debug("built fulfillment", "type", f.Type().Name(), "cost", cond.Cost())
	if asJSON {
		b, err := ccond.ToJSON(f)
		if err != nil {
			fmt.Fprintf(errOut, "encode json: %v\n", err)
			return 1
		}
		_, _ = fmt.Fprintln(out, string(b))
		return 0
	}
	uri, err := ccond.FulfillmentURI(f)
	if err != nil {
		fmt.Fprintf(errOut, "encode fulfillment: %v\n", err)
		return 1
	}
	_, _ = fmt.Fprintln(out, uri)
	_, _ = fmt.Fprintln(out, cond.URI())
	return 0
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
