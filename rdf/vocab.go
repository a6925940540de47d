package rdf

import "strings"

// XML Schema datatypes
const (
	XSDString   IRI = "http://www.w3.org/2001/XMLSchema#string"
	XSDInteger  IRI = "http://www.w3.org/2001/XMLSchema#integer"
	XSDBoolean  IRI = "http://www.w3.org/2001/XMLSchema#boolean"
	XSDDate     IRI = "http://www.w3.org/2001/XMLSchema#date"
	XSDDateTime IRI = "http://www.w3.org/2001/XMLSchema#dateTime"

	// RDFLangString is the implicit datatype of language-tagged literals
	RDFLangString IRI = "http://www.w3.org/1999/02/22-rdf-syntax-ns#langString"
	RDFType       IRI = "http://www.w3.org/1999/02/22-rdf-syntax-ns#type"
)

// Dublin Core Elements 1.1
const (
	DC11Title       IRI = "http://purl.org/dc/elements/1.1/title"
	DC11Creator     IRI = "http://purl.org/dc/elements/1.1/creator"
	DC11Relation    IRI = "http://purl.org/dc/elements/1.1/relation"
	DC11Description IRI = "http://purl.org/dc/elements/1.1/description"
)

// Dublin Core Metadata Terms
const (
	DCTitle         IRI = "http://purl.org/dc/terms/title"
	DCCreator       IRI = "http://purl.org/dc/terms/creator"
	DCContributor   IRI = "http://purl.org/dc/terms/contributor"
	DCDescription   IRI = "http://purl.org/dc/terms/description"
	DCRelation      IRI = "http://purl.org/dc/terms/relation"
	DCRights        IRI = "http://purl.org/dc/terms/rights"
	DCPublisher     IRI = "http://purl.org/dc/terms/publisher"
	DCCreated       IRI = "http://purl.org/dc/terms/created"
	DCDateSubmitted IRI = "http://purl.org/dc/terms/dateSubmitted"
	DCModified      IRI = "http://purl.org/dc/terms/modified"
	DCSubject       IRI = "http://purl.org/dc/terms/subject"
	DCLanguage      IRI = "http://purl.org/dc/terms/language"
	DCIdentifier    IRI = "http://purl.org/dc/terms/identifier"
	DCIsPartOf      IRI = "http://purl.org/dc/terms/isPartOf"
	DCType          IRI = "http://purl.org/dc/terms/type"
)

// RDF Schema and FOAF
const (
	RDFSLabel     IRI = "http://www.w3.org/2000/01/rdf-schema#label"
	RDFSSeeAlso   IRI = "http://www.w3.org/2000/01/rdf-schema#seeAlso"
	FOAFBasedNear IRI = "http://xmlns.com/foaf/0.1/based_near"
)

// Fedora 4 repository predicates
const (
	FedoraMixinTypes  IRI = "http://fedora.info/definitions/v4/repository#mixinTypes"
	FedoraPrimaryType IRI = "http://fedora.info/definitions/v4/repository#primaryType"
	FedoraHasParent   IRI = "http://fedora.info/definitions/v4/repository#hasParent"
)

// Prefixes maps the short names accepted in schema files to namespace IRIs.
var Prefixes = map[string]string{
	"dc11":   "http://purl.org/dc/elements/1.1/",
	"dc":     "http://purl.org/dc/terms/",
	"rdf":    "http://www.w3.org/1999/02/22-rdf-syntax-ns#",
	"rdfs":   "http://www.w3.org/2000/01/rdf-schema#",
	"foaf":   "http://xmlns.com/foaf/0.1/",
	"xsd":    "http://www.w3.org/2001/XMLSchema#",
	"fedora": "http://fedora.info/definitions/v4/repository#",
}

// ExpandIRI resolves a "prefix:local" name against Prefixes. Absolute IRIs
// and unknown prefixes are returned unchanged.
func ExpandIRI(name string) IRI {
	if strings.Contains(name, "://") {
		return IRI(name)
	}
	prefix, local, ok := strings.Cut(name, ":")
	if !ok {
		return IRI(name)
	}
	ns, known := Prefixes[prefix]
	if !known {
		return IRI(name)
	}
	return IRI(ns + local)
}
