// Package dom models the page's element tree as borrowed views.
//
// Nodes are not owned by this package: they stand in for elements that
// live in the client's document. Mutations performed through a Document
// are recorded as Patch operations so a thin client can replay them.
// Geometry (Rect) is optional and reported by the client; a nil Rect
// means the measurement primitive is unavailable for that node.
package dom
