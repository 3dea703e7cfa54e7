/*
Package domain contains the core domain models of the livemd runtime.

It defines the entities that flow between the extractor, the parser and the
executor: parsed Segments of a document, scalar Values held in a session's state,
form definitions, and the per-block and per-pass execution results. This package is
kept pure and free of I/O, following Hexagonal Architecture principles.

# Key Entities

  - Segment: literal prose or a parsed runtime block, in document order.
  - Value: a string, number or boolean variable value.
  - FormDefinition: the fields a form block asks the host to collect.
  - RenderResult: the rendered document, the state delta and block-scoped errors of a pass.
*/
package domain
