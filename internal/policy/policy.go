// Package policy builds and inspects S3-style bucket access policies.
//
// Every bucket provisioned by this service carries exactly one policy: the
// single-owner policy produced by OwnerOnly, which grants the owning user's
// access-key principal object read/write/delete and bucket listing, scoped to
// that bucket's resources, and nothing else.
package policy

import (
	"encoding/json"
	"fmt"
)

const (
	// Version is the AWS policy language version used in every document.
	Version = "2012-10-17"

	s3ARNPrefix  = "arn:aws:s3:::"
	iamARNPrefix = "arn:aws:iam:::user/"
)

// OwnerActions are the actions granted to a bucket's owner.
var OwnerActions = []string{
	"s3:GetObject",
	"s3:PutObject",
	"s3:DeleteObject",
	"s3:ListBucket",
}

// Document is a bucket policy.
type Document struct {
	Version   string      `json:"Version"`
	Statement []Statement `json:"Statement"`
}

// Statement is a single policy rule.
type Statement struct {
	Effect    string    `json:"Effect"`
	Principal Principal `json:"Principal"`
	Action    []string  `json:"Action"`
	Resource  []string  `json:"Resource"`
}

// Principal names the identities a statement applies to.
type Principal struct {
	AWS []string `json:"AWS"`
}

// OwnerOnly returns the single-owner policy for bucket: accessKey is the only
// allowed principal, with OwnerActions over the bucket and its objects.
func OwnerOnly(bucket, accessKey string) Document {
	return Document{
		Version: Version,
		Statement: []Statement{
			{
				Effect:    "Allow",
				Principal: Principal{AWS: []string{iamARNPrefix + accessKey}},
				Action:    OwnerActions,
				Resource: []string{
					s3ARNPrefix + bucket,
					s3ARNPrefix + bucket + "/*",
				},
			},
		},
	}
}

// Marshal encodes a document as the JSON string the storage backend expects.
func Marshal(doc Document) (string, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("marshal policy document: %w", err)
	}
	return string(raw), nil
}

// Parse decodes a policy document fetched from the storage backend.
func Parse(raw string) (Document, error) {
	var doc Document
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return Document{}, fmt.Errorf("parse policy document: %w", err)
	}
	return doc, nil
}

// Principals returns every principal named by any statement in the document,
// in statement order, with the IAM ARN prefix stripped.
func (d Document) Principals() []string {
	var principals []string
	for _, stmt := range d.Statement {
		for _, p := range stmt.Principal.AWS {
			if len(p) > len(iamARNPrefix) && p[:len(iamARNPrefix)] == iamARNPrefix {
				p = p[len(iamARNPrefix):]
			}
			principals = append(principals, p)
		}
	}
	return principals
}
