/**
 * @Author: lidonglin
 * @Description:
 * @File:  http_default.go
 * @Version: 1.0.0
 * @Date: 2022/05/28 10:46
 */

package tclient

// default client for convenience
var defaultClient = NewHttpClient()

var Defaults = defaultClient.Defaults

var Debug = defaultClient.Debug

var WithOption = defaultClient.WithOption

var WithTimeout = defaultClient.WithTimeout
var WithConnectTimeout = defaultClient.WithConnectTimeout
var WithDeadlineTimeout = defaultClient.WithDeadlineTimeout

var WithProxyAddress = defaultClient.WithProxyAddress
var WithUnsafeTls = defaultClient.WithUnsafeTls

var WithTransport = defaultClient.WithTransport
var WithLogTransOption = defaultClient.WithLogTransOption
var WithMetricsInterceptor = defaultClient.WithMetricsInterceptor

var WithHeader = defaultClient.WithHeader
var WithHeaders = defaultClient.WithHeaders

var Do = defaultClient.Do

var Head = defaultClient.Head
var Get = defaultClient.Get

var Post = defaultClient.Post
var PostJson = defaultClient.PostJson

var Put = defaultClient.Put
var PutJson = defaultClient.PutJson

var Delete = defaultClient.Delete
