/**
 * @Author: lidonglin
 * @Description:
 * @File:  http_const.go
 * @Version: 1.0.0
 * @Date: 2022/05/28 10:46
 */

package tclient

const (
	ContentTypeTextPlain = "text/plain"

	ContentTypeApplicationForm = "application/x-www-form-urlencoded"
	ContentTypeApplicationJson = "application/json"
)
