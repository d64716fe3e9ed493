package request

import (
	"errors"
	"fmt"
	"time"

	"github.com/beevik/etree"

	"github.com/sirosfoundation/go-bluem/pkg/config"
	"github.com/sirosfoundation/go-bluem/pkg/registry"
)

// ErrInvalidInput is returned when a request cannot be built from the
// supplied arguments.
var ErrInvalidInput = errors.New("invalid request input")

// Interface types carried in the type attribute of the outer element.
const (
	TypeTransactionRequest = "TransactionRequest"
	TypeStatusRequest      = "StatusRequest"
)

// Request is a fully built provider request. A Request renders the same
// document every time it is asked and is not modified after construction.
type Request interface {
	TransactionCode() registry.TransactionCode
	Context() *registry.Context
	EntranceCode() string
	// Path is the submission path relative to the provider base URL.
	Path() string
	Document() *etree.Document
	XML() ([]byte, error)
}

// envelope holds the parts shared by every request: the interface element
// and the request object element with its correlation attributes.
type envelope struct {
	code          registry.TransactionCode
	ctx           *registry.Context
	interfaceType string
	objectName    string
	senderID      string
	createdAt     time.Time
	entranceCode  string
	expected      config.ReturnStatus
	objectAttrs   []etree.Attr
	fill          func(obj *etree.Element)
}

func (e *envelope) TransactionCode() registry.TransactionCode { return e.code }
func (e *envelope) Context() *registry.Context                { return e.ctx }
func (e *envelope) EntranceCode() string                      { return e.entranceCode }

func (e *envelope) Path() string {
	return e.ctx.URLType() + "/" + string(e.code)
}

// Document renders the request as a new XML document.
func (e *envelope) Document() *etree.Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	root := doc.CreateElement(e.ctx.InterfaceName())
	root.CreateAttr("type", e.interfaceType)
	root.CreateAttr("mode", "direct")
	root.CreateAttr("senderID", e.senderID)
	root.CreateAttr("version", "1.0")
	root.CreateAttr("createDateTime", createDateTime(e.createdAt))
	root.CreateAttr("messageCount", "1")

	obj := root.CreateElement(e.objectName)
	obj.CreateAttr("entranceCode", e.entranceCode)
	for _, a := range e.objectAttrs {
		obj.CreateAttr(a.Key, a.Value)
	}
	if e.expected != "" {
		obj.CreateAttr("expectedReturnStatus", string(e.expected))
	}
	if e.fill != nil {
		e.fill(obj)
	}
	return doc
}

// XML renders the request document.
func (e *envelope) XML() ([]byte, error) {
	doc := e.Document()
	doc.Indent(2)
	b, err := doc.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("rendering %s request: %w", e.code, err)
	}
	return b, nil
}

func textElement(parent *etree.Element, name, text string) *etree.Element {
	el := parent.CreateElement(name)
	el.SetText(text)
	return el
}

func attr(key, value string) etree.Attr {
	return etree.Attr{Key: key, Value: value}
}
