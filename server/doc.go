// Package server exposes document generation over HTTP with gin. Clients
// pick a template from the templates directory and post a context; the
// server renders the DOCX, optionally converts it to PDF, and answers with
// download URLs under /out. Petition routes render the template of a
// petition type and send the files back as attachments. It also offers
// company lookup by CNPJ to prefill petition contexts.
package server
