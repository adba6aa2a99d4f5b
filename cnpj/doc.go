// Package cnpj finds company data by CNPJ. A local list of frequent
// defendants is searched first, then BrasilAPI, then ReceitaWS. Remote
// answers are mapped to the same Company shape as the local list.
package cnpj
