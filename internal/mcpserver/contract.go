package mcpserver

// IdentifierFormatContract describes the canonical GTS identifier grammar
// that LLM consumers should follow when producing or matching identifiers.
const IdentifierFormatContract = `# GTS Identifier Format

Every Global Type System identifier MUST follow this structure.

## Grammar

` + "```" + `
gts.<vendor>.<package>.<namespace...>.<type>.v<major>[.<minor>]~[<qualifier>]
` + "```" + `

Examples:

` + "```" + `
gts.x.core.events.event.v1.0~                       # schema (trailing ~)
gts.x.core.events.event.v1~                         # schema, no minor version
gts.x.core.events.event.v1.0~acme.audit.login.v1    # instance of that schema
gts.acme.billing.invoices.invoice.v2.3~line-item.v1 # chained sub-artifact
` + "```" + `

## Rules

1. **Prefix.** Every identifier starts with ` + "`gts.`" + `.
2. **Segments** use only ` + "`[A-Za-z0-9_-]`" + ` characters, separated by dots.
3. **Root part** is vendor, package, one or more namespace segments, type,
   then a version: ` + "`v<major>`" + ` with an optional ` + "`.<minor>`" + `.
4. **The '~' separator is required.** A trailing ` + "`~`" + ` marks a schema;
   anything after ` + "`~`" + ` is a qualifier naming an instance or
   sub-artifact, itself carrying a version. Qualifiers chain with further
   ` + "`~`" + ` separators.
5. **Length** is at most 1024 bytes.
6. **UUID.** Each identifier maps deterministically to a UUIDv5 in the GTS
   namespace, so equal identifiers always share a UUID.

## Wildcard patterns

- ` + "`*`" + ` in place of a segment matches exactly one segment:
  ` + "`gts.x.core.*.event.v1.0~`" + `.
- A trailing ` + "`*`" + ` matches any remaining suffix: ` + "`gts.x.core.*`" + `.
- ` + "`v<major>~*`" + ` matches every minor version under that major:
  ` + "`gts.x.core.events.event.v1~*`" + ` matches ` + "`...event.v1.0~`" + `
  and ` + "`...event.v1.5~`" + ` but not ` + "`...event.v2.0~`" + `.
- A pattern without wildcards is an exact identifier comparison.

## Queries

Append predicates in brackets to filter matched entities by content:

` + "```" + `
gts.acme.billing.invoices.*[status=active, total>100]
` + "```" + `

Operators: ` + "`=`" + ` ` + "`!=`" + ` ` + "`>`" + ` ` + "`>=`" + ` ` + "`<`" + ` ` + "`<=`" + ` and ` + "`~`" + ` (contains).
Attribute paths use dots and list indices: ` + "`spec.tags[0]`" + `.
`
