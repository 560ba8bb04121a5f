package emit

import "strings"

// helper is one declaration of the fixed type library. "$MAP" in decl is
// replaced with the route map's name.
type helper struct {
	doc  []string
	decl []string
}

var helpers = []helper{
	{
		doc:  []string{"Route metadata shape used by $MAP."},
		decl: []string{"type RouteMeta<Body, Query, Params, Headers, Res, Method extends string> = { body: Body; query: Query; params: Params; headers: Headers; res: Res; method: Method }"},
	},
	{
		doc:  []string{"Lookup helper for a single route entry.", "Example: RouteOf<'/api/auth/signin'>"},
		decl: []string{"type RouteOf<P extends keyof $MAP> = $MAP[P]"},
	},
	{
		doc: []string{"Removes keys with `never` values for cleaner request shapes."},
		decl: []string{
			"type CleanupNever<T> = {",
			"  [K in keyof T as T[K] extends never ? never : K]: T[K]",
			"}",
		},
	},
	{
		doc:  []string{"Union of all route paths."},
		decl: []string{"export type RoutePath = keyof $MAP"},
	},
	{
		doc:  []string{"HTTP method for a given path.", "Example: RouteMethod<'/api/auth/signin'>"},
		decl: []string{"export type RouteMethod<P extends RoutePath> = RouteOf<P>['method']"},
	},
	{
		doc:  []string{"Response type for a given path."},
		decl: []string{"export type RouteRes<P extends RoutePath> = RouteOf<P>['res']"},
	},
	{
		doc:  []string{"Request shape for a given path (body/query/params/headers).", "Example: RouteReq<'/api/auth/signin'>"},
		decl: []string{"export type RouteReq<P extends RoutePath> = CleanupNever<Pick<RouteOf<P>, 'body' | 'query' | 'params' | 'headers'>>"},
	},
	{
		doc:  []string{"Union of all HTTP methods used by routes."},
		decl: []string{"export type RouteMethods = $MAP[RoutePath]['method']"},
	},
	{
		doc:  []string{"Lookup helper for a route entry by method.", "Example: RouteOfMethod<'/api/auth/signin', 'POST'>"},
		decl: []string{"type RouteOfMethod<P extends keyof $MAP, M extends RouteMethods> = Extract<RouteOf<P>, { method: M }>"},
	},
	{
		doc:  []string{"Response type for a given path and method."},
		decl: []string{"export type RouteResMethod<P extends RoutePath, M extends RouteMethods> = RouteOfMethod<P, M>['res']"},
	},
	{
		doc:  []string{"Request shape for a given path and method.", "Example: RouteReqMethod<'/api/auth/signin', 'POST'>"},
		decl: []string{"export type RouteReqMethod<P extends RoutePath, M extends RouteMethods> = CleanupNever<Pick<RouteOfMethod<P, M>, 'body' | 'query' | 'params' | 'headers'>>"},
	},
	{
		doc:  []string{"Filters route paths by method.", "Example: PathsByMethod<'GET'>"},
		decl: []string{"export type PathsByMethod<M extends RouteMethods> = { [P in RoutePath]: M extends RouteMethod<P> ? P : never }[RoutePath]"},
	},
	{
		doc:  []string{"Fetcher signature for a typed client."},
		decl: []string{"export type ApiFetcher = <P extends RoutePath>(path: P, req: RouteReq<P>) => Promise<RouteRes<P>>"},
	},
	{
		doc:  []string{"Typed client contract with request and byMethod."},
		decl: []string{"export type ApiClient = { request: ApiFetcher; byMethod: <M extends RouteMethods, P extends PathsByMethod<M>>(method: M, path: P, req: RouteReqMethod<P, M>) => Promise<RouteResMethod<P, M>> }"},
	},
	{
		doc:  []string{"Body type for a path."},
		decl: []string{"export type GetBody<P extends keyof $MAP> = RouteOf<P>['body']"},
	},
	{
		doc:  []string{"Query type for a path."},
		decl: []string{"export type GetQuery<P extends keyof $MAP> = RouteOf<P>['query']"},
	},
	{
		doc:  []string{"Params type for a path."},
		decl: []string{"export type GetParams<P extends keyof $MAP> = RouteOf<P>['params']"},
	},
	{
		doc:  []string{"Headers type for a path."},
		decl: []string{"export type GetHeaders<P extends keyof $MAP> = RouteOf<P>['headers']"},
	},
	{
		doc:  []string{"Response type for a path."},
		decl: []string{"export type GetRes<P extends keyof $MAP> = RouteOf<P>['res']"},
	},
	{
		doc:  []string{"Request type for a path (alias of RouteReq)."},
		decl: []string{"export type GetReq<P extends keyof $MAP> = RouteReq<P>"},
	},
}

func writeHelpers(b *strings.Builder, mapName string) {
	r := strings.NewReplacer("$MAP", mapName)
	for _, h := range helpers {
		writeDoc(b, r, h.doc)
		for _, line := range h.decl {
			b.WriteString(r.Replace(line))
			b.WriteByte('\n')
		}
		b.WriteByte('\n')
	}
}

func writeDoc(b *strings.Builder, r *strings.Replacer, lines []string) {
	b.WriteString("/**\n")
	for _, l := range lines {
		b.WriteString(" * ")
		b.WriteString(r.Replace(l))
		b.WriteByte('\n')
	}
	b.WriteString(" */\n")
}
