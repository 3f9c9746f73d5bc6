package application

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schema.json
var orderSchemaJSON []byte

const orderSchemaURL = "https://ecommerce.local/schemas/order.json"

var orderSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	if err := c.AddResource(orderSchemaURL, bytes.NewReader(orderSchemaJSON)); err != nil {
		return nil, fmt.Errorf("add order schema: %w", err)
	}
	return c.Compile(orderSchemaURL)
})

// validateSchema 校验订单文档（已注入 userId）的结构
func validateSchema(doc map[string]any) error {
	schema, err := orderSchema()
	if err != nil {
		return err
	}
	return schema.Validate(doc)
}

// decodeDocument 把原始 JSON 解码为通用文档，数字保留为 json.Number
func decodeDocument(raw []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	return doc, nil
}
